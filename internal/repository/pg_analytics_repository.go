package repository

import (
	"context"
	"fmt"

	"moral-torture-machine/internal/models"

	"go.uber.org/zap"
)

type pgAnalyticsRepository struct {
	db     DBTX
	logger *zap.Logger
}

var _ AnalyticsRepository = (*pgAnalyticsRepository)(nil)

// NewPgAnalyticsRepository returns the PostgreSQL analytics store.
func NewPgAnalyticsRepository(db DBTX, logger *zap.Logger) AnalyticsRepository {
	return &pgAnalyticsRepository{db: db, logger: logger.Named("PgAnalyticsRepo")}
}

func (r *pgAnalyticsRepository) Insert(ctx context.Context, e *models.AnalyticsEvent) error {
	data := []byte(e.ActionData)
	if len(data) == 0 {
		data = []byte("{}")
	}
	query := `
INSERT INTO analytics_events (session_id, timestamp_ms, action_type, language, action_data, user_agent, hashed_ip, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query, e.SessionID, e.Timestamp, e.ActionType, e.Language, data, e.UserAgent, e.HashedIP, e.ExpiresAt)
	if err != nil {
		r.logger.Error("Failed to insert analytics event",
			zap.String("session_id", e.SessionID), zap.String("action_type", e.ActionType), zap.Error(err))
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

func (r *pgAnalyticsRepository) DeleteExpired(ctx context.Context, nowMs int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM analytics_events WHERE expires_at < $1`, nowMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired analytics events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgAnalyticsRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM analytics_events WHERE session_id = $1`, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count analytics events: %w", err)
	}
	return n, nil
}
