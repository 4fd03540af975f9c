package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/v2/internal/ports/outbound"
)

// FavoritesRepository implements the favorites provider interface using GORM
type FavoritesRepository struct {
	db *gorm.DB
}

// NewFavoritesRepository creates a new favorites repository
func NewFavoritesRepository(db *gorm.DB) outbound.FavoritesProvider {
	return &FavoritesRepository{db: db}
}

// GetFavoriteMealIDs returns the user's favorite meal IDs as a set.
func (r *FavoritesRepository) GetFavoriteMealIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var mealIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&FavoriteModel{}).
		Where("user_id = ?", userID).
		Pluck("meal_id", &mealIDs).Error
	if err != nil {
		return nil, err
	}

	favorites := make(map[uuid.UUID]struct{}, len(mealIDs))
	for _, id := range mealIDs {
		favorites[id] = struct{}{}
	}
	return favorites, nil
}
