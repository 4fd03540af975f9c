package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/ports/outbound"
)

// CatalogRepository implements the catalog provider interface using GORM
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) outbound.CatalogProvider {
	return &CatalogRepository{db: db}
}

// GetCandidateMeals returns the meal definitions visible to the user under
// the given filters. Private meals are visible only through kitchen
// membership, and only when the request opts in.
func (r *CatalogRepository) GetCandidateMeals(ctx context.Context, userID uuid.UUID, filters outbound.CatalogFilters) ([]meal.Definition, error) {
	query := r.db.WithContext(ctx).Model(&MealModel{})

	if filters.KitchenID != nil {
		query = query.Where("kitchen_id = ?", *filters.KitchenID)
	}
	if filters.MealType != "" {
		query = query.Where("meal_type = ?", string(filters.MealType))
	}

	if filters.IncludePrivate {
		memberKitchens := r.db.Model(&KitchenMemberModel{}).
			Select("kitchen_id").
			Where("user_id = ?", userID)
		query = query.Where("is_public = ? OR kitchen_id IN (?)", true, memberKitchens)
	} else {
		query = query.Where("is_public = ?", true)
	}

	var models []MealModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	meals := make([]meal.Definition, len(models))
	for i := range models {
		meals[i] = ModelToMeal(&models[i])
	}
	return meals, nil
}
