// Package gorm provides GORM model definitions and the read-side provider
// implementations backed by them.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealModel represents the GORM model for meal definitions
type MealModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	KitchenID uuid.UUID `gorm:"type:char(36);not null;index"`
	MealType  string    `gorm:"type:varchar(20);not null;index"`

	// Ingredient requirements with tiers, stored as JSON
	Requirements RequirementsField `gorm:"type:json"`

	IsPublic  bool      `gorm:"default:true;index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// PantryItemModel represents the GORM model for pantry contents
type PantryItemModel struct {
	UserID       uuid.UUID `gorm:"type:char(36);primaryKey"`
	IngredientID string    `gorm:"type:varchar(100);primaryKey"`
	Quantity     float64   `gorm:"default:0"`
	Unit         string    `gorm:"type:varchar(20)"`
	UpdatedAt    time.Time
}

// FavoriteModel represents the GORM model for favorite meals
type FavoriteModel struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	MealID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"index"`
}

// KitchenMemberModel represents the GORM model for kitchen membership.
// Membership gates visibility of a kitchen's private meals.
type KitchenMemberModel struct {
	KitchenID uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	Role      string    `gorm:"type:varchar(20);default:'member'"`
	CreatedAt time.Time
}

// SuggestionHistoryModel represents the GORM model for suggestion history
type SuggestionHistoryModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID `gorm:"type:char(36);not null;index:idx_history_user_time"`
	MealID      uuid.UUID `gorm:"type:char(36);not null;index"`
	SuggestedAt time.Time `gorm:"not null;index:idx_history_user_time"`
	WasSelected bool      `gorm:"default:false"`
	SelectedAt  *time.Time
}

// RequirementRecord is the stored form of one ingredient requirement
type RequirementRecord struct {
	IngredientID string  `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Status       string  `json:"status"`
}

// RequirementsField custom type for handling requirement lists as JSON
type RequirementsField []RequirementRecord

// Scan implements the sql.Scanner interface
func (r *RequirementsField) Scan(value interface{}) error {
	if value == nil {
		*r = RequirementsField{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into RequirementsField", value)
	}
}

// Value implements the driver.Valuer interface
func (r RequirementsField) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	return json.Marshal(r)
}

// BeforeCreate hook for MealModel
func (m *MealModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for SuggestionHistoryModel
func (h *SuggestionHistoryModel) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// TableName methods for custom table names
func (MealModel) TableName() string {
	return "meals"
}

func (PantryItemModel) TableName() string {
	return "pantry_items"
}

func (FavoriteModel) TableName() string {
	return "favorites"
}

func (KitchenMemberModel) TableName() string {
	return "kitchen_members"
}

func (SuggestionHistoryModel) TableName() string {
	return "suggestion_history"
}
