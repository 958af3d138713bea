package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"moral-torture-machine/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const storyFlowColumns = `id, base_id, language, title, description, nodes, created_at`

const upsertStoryFlowQuery = `
INSERT INTO story_flows (id, base_id, language, title, description, nodes)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	base_id = EXCLUDED.base_id,
	language = EXCLUDED.language,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	nodes = EXCLUDED.nodes`

type pgStoryFlowRepository struct {
	db     TxBeginner
	logger *zap.Logger
}

var _ StoryFlowRepository = (*pgStoryFlowRepository)(nil)

// NewPgStoryFlowRepository returns the PostgreSQL story flow store.
func NewPgStoryFlowRepository(db TxBeginner, logger *zap.Logger) StoryFlowRepository {
	return &pgStoryFlowRepository{db: db, logger: logger.Named("PgStoryFlowRepo")}
}

func (r *pgStoryFlowRepository) ListIDs(ctx context.Context, language string) ([]string, error) {
	var ids []string
	if err := pgxscan.Select(ctx, r.db, &ids, `SELECT id FROM story_flows WHERE language = $1 ORDER BY id`, language); err != nil {
		r.logger.Error("Failed to list story flow ids", zap.String("language", language), zap.Error(err))
		return nil, fmt.Errorf("failed to list story flow ids: %w", err)
	}
	return ids, nil
}

func (r *pgStoryFlowRepository) GetByID(ctx context.Context, id string) (*models.StoryFlow, error) {
	var f models.StoryFlow
	if err := pgxscan.Get(ctx, r.db, &f, `SELECT `+storyFlowColumns+` FROM story_flows WHERE id = $1`, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, id)
		}
		r.logger.Error("Failed to get story flow", zap.String("flow_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get story flow %s: %w", id, err)
	}
	return &f, nil
}

func (r *pgStoryFlowRepository) Upsert(ctx context.Context, flows []models.StoryFlow) (int, error) {
	if len(flows) == 0 {
		return 0, nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range flows {
		f := &flows[i]
		nodes, err := json.Marshal(f.Nodes)
		if err != nil {
			return 0, fmt.Errorf("failed to encode nodes of %s: %w", f.ID, err)
		}
		batch.Queue(upsertStoryFlowQuery, f.ID, f.BaseID, f.Language, f.Title, f.Description, nodes)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("Failed to upsert story flows", zap.Int("count", len(flows)), zap.Error(err))
		return 0, fmt.Errorf("failed to upsert story flows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit story flows: %w", err)
	}
	r.logger.Info("Story flows upserted", zap.Int("count", len(flows)))
	return len(flows), nil
}

func (r *pgStoryFlowRepository) DeleteByLanguage(ctx context.Context, language string) (int64, error) {
	query, args := `DELETE FROM story_flows`, []any{}
	if language != "" {
		query, args = query+` WHERE language = $1`, append(args, language)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete story flows", zap.String("language", language), zap.Error(err))
		return 0, fmt.Errorf("failed to delete story flows: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgStoryFlowRepository) List(ctx context.Context, language string) ([]models.StoryFlow, error) {
	query := `SELECT ` + storyFlowColumns + ` FROM story_flows`
	var args []any
	if language != "" {
		query += ` WHERE language = $1`
		args = append(args, language)
	}
	var out []models.StoryFlow
	if err := pgxscan.Select(ctx, r.db, &out, query+` ORDER BY id`, args...); err != nil {
		return nil, fmt.Errorf("failed to list story flows: %w", err)
	}
	return out, nil
}
