package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

// IncrementNotificationStats adds to the daily counters of a notification kind.
func IncrementNotificationStats(ctx context.Context, q Querier, day, kind string, sent, succeeded, failed int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO notification_stats (day, kind, sent, succeeded, failed) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (day, kind) DO UPDATE SET
		     sent = sent + excluded.sent,
		     succeeded = succeeded + excluded.succeeded,
		     failed = failed + excluded.failed`,
		day, kind, sent, succeeded, failed,
	)
	if err != nil {
		return fmt.Errorf("incrementing notification stats: %w", err)
	}
	return nil
}

// ListNotificationStats returns the counters recorded between two days
// (inclusive, YYYY-MM-DD).
func ListNotificationStats(ctx context.Context, q Querier, from, to string) ([]model.NotificationStat, error) {
	var stats []model.NotificationStat
	err := sqlx.SelectContext(ctx, q, &stats,
		`SELECT day, kind, sent, succeeded, failed FROM notification_stats
		 WHERE day >= ? AND day <= ? ORDER BY day, kind`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notification stats: %w", err)
	}
	return stats, nil
}
