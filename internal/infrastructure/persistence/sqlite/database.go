// Package sqlite provides SQLite database setup for development and tests
package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gormModels "github.com/platewise/v2/internal/infrastructure/persistence/gorm"
)

// SetupDatabase creates and configures the SQLite database
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Each pooled connection to :memory: would get its own database, so
	// the in-memory mode must run on a single connection.
	if dbPath == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Run auto-migration
	err = db.AutoMigrate(
		&gormModels.MealModel{},
		&gormModels.PantryItemModel{},
		&gormModels.FavoriteModel{},
		&gormModels.KitchenMemberModel{},
		&gormModels.SuggestionHistoryModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// SeedDatabase populates the database with demo data: one home kitchen,
// a few meals across tiers, and a stocked pantry to suggest against.
func SeedDatabase(db *gorm.DB) error {
	var mealCount int64
	db.Model(&gormModels.MealModel{}).Count(&mealCount)
	if mealCount > 0 {
		return nil // Already seeded
	}

	kitchenID := uuid.New()
	userID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	member := gormModels.KitchenMemberModel{
		KitchenID: kitchenID,
		UserID:    userID,
		Role:      "owner",
	}
	if err := db.Create(&member).Error; err != nil {
		return fmt.Errorf("failed to create demo kitchen member: %w", err)
	}

	demoMeals := []gormModels.MealModel{
		{
			KitchenID: kitchenID,
			MealType:  "dinner",
			IsPublic:  true,
			CreatedAt: time.Now().Add(-72 * time.Hour),
			Requirements: gormModels.RequirementsField{
				{IngredientID: "rice", Quantity: 200, Unit: "g", Status: "mandatory"},
				{IngredientID: "chicken-breast", Quantity: 300, Unit: "g", Status: "mandatory"},
				{IngredientID: "soy-sauce", Quantity: 30, Unit: "ml", Status: "recommended"},
				{IngredientID: "scallion", Quantity: 1, Unit: "bunch", Status: "optional"},
			},
		},
		{
			KitchenID: kitchenID,
			MealType:  "breakfast",
			IsPublic:  true,
			CreatedAt: time.Now().Add(-48 * time.Hour),
			Requirements: gormModels.RequirementsField{
				{IngredientID: "eggs", Quantity: 3, Unit: "piece", Status: "mandatory"},
				{IngredientID: "butter", Quantity: 15, Unit: "g", Status: "recommended"},
				{IngredientID: "chives", Quantity: 10, Unit: "g", Status: "optional"},
			},
		},
		{
			KitchenID: kitchenID,
			MealType:  "lunch",
			IsPublic:  false,
			CreatedAt: time.Now().Add(-24 * time.Hour),
			Requirements: gormModels.RequirementsField{
				{IngredientID: "pasta", Quantity: 150, Unit: "g", Status: "mandatory"},
				{IngredientID: "tomato", Quantity: 3, Unit: "piece", Status: "mandatory"},
				{IngredientID: "basil", Quantity: 10, Unit: "g", Status: "recommended"},
				{IngredientID: "parmesan", Quantity: 30, Unit: "g", Status: "optional"},
			},
		},
	}

	for i := range demoMeals {
		if err := db.Create(&demoMeals[i]).Error; err != nil {
			return fmt.Errorf("failed to create demo meal: %w", err)
		}
	}

	pantryItems := []gormModels.PantryItemModel{
		{UserID: userID, IngredientID: "rice", Quantity: 1000, Unit: "g"},
		{UserID: userID, IngredientID: "chicken-breast", Quantity: 600, Unit: "g"},
		{UserID: userID, IngredientID: "eggs", Quantity: 12, Unit: "piece"},
		{UserID: userID, IngredientID: "soy-sauce", Quantity: 250, Unit: "ml"},
		{UserID: userID, IngredientID: "pasta", Quantity: 500, Unit: "g"},
	}
	for _, item := range pantryItems {
		if err := db.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create demo pantry item: %w", err)
		}
	}

	favorite := gormModels.FavoriteModel{
		UserID: userID,
		MealID: demoMeals[0].ID,
	}
	if err := db.Create(&favorite).Error; err != nil {
		return fmt.Errorf("failed to create demo favorite: %w", err)
	}

	return nil
}
