package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/outbound"
)

// HistoryRepository implements the history provider on the pgx pool. The
// history table is append-heavy and scanned by time window, so it uses
// raw queries against the composite (user_id, suggested_at) index instead
// of going through GORM.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(pool *pgxpool.Pool) outbound.HistoryProvider {
	return &HistoryRepository{pool: pool}
}

// GetRecentHistory returns the user's suggestion history inside the
// window, oldest first.
func (r *HistoryRepository) GetRecentHistory(ctx context.Context, userID uuid.UUID, window time.Duration) ([]suggestion.HistoryEntry, error) {
	cutoff := time.Now().Add(-window)

	rows, err := r.pool.Query(ctx, `
		SELECT meal_id, suggested_at, was_selected, selected_at
		FROM suggestion_history
		WHERE user_id = $1 AND suggested_at >= $2
		ORDER BY suggested_at ASC`,
		userID, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []suggestion.HistoryEntry
	for rows.Next() {
		var entry suggestion.HistoryEntry
		if err := rows.Scan(&entry.MealID, &entry.SuggestedAt, &entry.WasSelected, &entry.SelectedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RecordFeedback appends one history row.
func (r *HistoryRepository) RecordFeedback(ctx context.Context, userID uuid.UUID, entry suggestion.HistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO suggestion_history (id, user_id, meal_id, suggested_at, was_selected, selected_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), userID, entry.MealID, entry.SuggestedAt, entry.WasSelected, entry.SelectedAt,
	)
	return err
}

