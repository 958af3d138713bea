package repository

import (
	"context"
	"errors"
	"fmt"

	"moral-torture-machine/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type pgStoryNodeVoteRepository struct {
	db     DBTX
	logger *zap.Logger
}

var _ StoryNodeVoteRepository = (*pgStoryNodeVoteRepository)(nil)

// NewPgStoryNodeVoteRepository returns the PostgreSQL story node tally store.
func NewPgStoryNodeVoteRepository(db DBTX, logger *zap.Logger) StoryNodeVoteRepository {
	return &pgStoryNodeVoteRepository{db: db, logger: logger.Named("PgStoryNodeVoteRepo")}
}

func (r *pgStoryNodeVoteRepository) Increment(ctx context.Context, flowID, nodeID string, first bool) (*models.StoryNodeStats, error) {
	firstInc, secondInc := 0, 1
	if first {
		firstInc, secondInc = 1, 0
	}
	query := `
INSERT INTO story_node_votes (flow_id, node_id, first_count, second_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (flow_id, node_id) DO UPDATE SET
	first_count = story_node_votes.first_count + EXCLUDED.first_count,
	second_count = story_node_votes.second_count + EXCLUDED.second_count
RETURNING flow_id, node_id, first_count, second_count`
	logFields := []zap.Field{zap.String("flow_id", flowID), zap.String("node_id", nodeID), zap.Bool("first", first)}

	var s models.StoryNodeStats
	if err := pgxscan.Get(ctx, r.db, &s, query, flowID, nodeID, firstInc, secondInc); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			r.logger.Warn("Story flow not found (foreign key violation)", logFields...)
			return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, flowID)
		}
		r.logger.Error("Failed to record story node vote", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to record story node vote: %w", err)
	}
	return &s, nil
}

func (r *pgStoryNodeVoteRepository) Get(ctx context.Context, flowID, nodeID string) (*models.StoryNodeStats, error) {
	s := models.StoryNodeStats{FlowID: flowID, NodeID: nodeID}
	err := pgxscan.Get(ctx, r.db, &s,
		`SELECT flow_id, node_id, first_count, second_count FROM story_node_votes WHERE flow_id = $1 AND node_id = $2`,
		flowID, nodeID)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to get story node stats: %w", err)
	}
	return &s, nil
}
