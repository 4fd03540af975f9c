package gorm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/outbound"
)

// HistoryRepository implements the history provider using GORM. Postgres
// deployments use the pgx implementation instead; this one backs the
// SQLite development mode, reading and writing the same rows with the
// same ordering.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) outbound.HistoryProvider {
	return &HistoryRepository{db: db}
}

// GetRecentHistory returns the user's suggestion history inside the
// window, oldest first.
func (r *HistoryRepository) GetRecentHistory(ctx context.Context, userID uuid.UUID, window time.Duration) ([]suggestion.HistoryEntry, error) {
	cutoff := time.Now().Add(-window)

	var rows []SuggestionHistoryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND suggested_at >= ?", userID, cutoff).
		Order("suggested_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]suggestion.HistoryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, ModelToHistoryEntry(&rows[i]))
	}
	return entries, nil
}

// RecordFeedback appends one history row.
func (r *HistoryRepository) RecordFeedback(ctx context.Context, userID uuid.UUID, entry suggestion.HistoryEntry) error {
	row := SuggestionHistoryModel{
		UserID:      userID,
		MealID:      entry.MealID,
		SuggestedAt: entry.SuggestedAt,
		WasSelected: entry.WasSelected,
		SelectedAt:  entry.SelectedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
