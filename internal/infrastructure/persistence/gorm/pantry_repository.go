package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/ports/outbound"
)

// PantryRepository implements the pantry provider interface using GORM
type PantryRepository struct {
	db *gorm.DB
}

// NewPantryRepository creates a new pantry repository
func NewPantryRepository(db *gorm.DB) outbound.PantryProvider {
	return &PantryRepository{db: db}
}

// GetPantry returns an immutable snapshot of the user's pantry. Quantity
// does not matter to scoring, so only ingredient IDs are read.
func (r *PantryRepository) GetPantry(ctx context.Context, userID uuid.UUID) (pantry.Snapshot, error) {
	var ingredientIDs []string
	err := r.db.WithContext(ctx).
		Model(&PantryItemModel{}).
		Where("user_id = ?", userID).
		Pluck("ingredient_id", &ingredientIDs).Error
	if err != nil {
		return pantry.Snapshot{}, err
	}

	return pantry.NewSnapshot(userID, ingredientIDs), nil
}
