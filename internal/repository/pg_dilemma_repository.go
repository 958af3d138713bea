package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moral-torture-machine/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const dilemmaColumns = `id, base_id, language, dilemma, first_answer, second_answer, tease_option1, tease_option2,
	first_answer_empathy, first_answer_integrity, first_answer_responsibility,
	first_answer_justice, first_answer_altruism, first_answer_honesty,
	second_answer_empathy, second_answer_integrity, second_answer_responsibility,
	second_answer_justice, second_answer_altruism, second_answer_honesty,
	yes_count, no_count, source, created_at`

const upsertDilemmaQuery = `
INSERT INTO dilemmas (id, base_id, language, dilemma, first_answer, second_answer, tease_option1, tease_option2,
	first_answer_empathy, first_answer_integrity, first_answer_responsibility,
	first_answer_justice, first_answer_altruism, first_answer_honesty,
	second_answer_empathy, second_answer_integrity, second_answer_responsibility,
	second_answer_justice, second_answer_altruism, second_answer_honesty,
	yes_count, no_count, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (id) DO UPDATE SET
	base_id = EXCLUDED.base_id,
	language = EXCLUDED.language,
	dilemma = EXCLUDED.dilemma,
	first_answer = EXCLUDED.first_answer,
	second_answer = EXCLUDED.second_answer,
	tease_option1 = EXCLUDED.tease_option1,
	tease_option2 = EXCLUDED.tease_option2,
	first_answer_empathy = EXCLUDED.first_answer_empathy,
	first_answer_integrity = EXCLUDED.first_answer_integrity,
	first_answer_responsibility = EXCLUDED.first_answer_responsibility,
	first_answer_justice = EXCLUDED.first_answer_justice,
	first_answer_altruism = EXCLUDED.first_answer_altruism,
	first_answer_honesty = EXCLUDED.first_answer_honesty,
	second_answer_empathy = EXCLUDED.second_answer_empathy,
	second_answer_integrity = EXCLUDED.second_answer_integrity,
	second_answer_responsibility = EXCLUDED.second_answer_responsibility,
	second_answer_justice = EXCLUDED.second_answer_justice,
	second_answer_altruism = EXCLUDED.second_answer_altruism,
	second_answer_honesty = EXCLUDED.second_answer_honesty,
	yes_count = EXCLUDED.yes_count,
	no_count = EXCLUDED.no_count,
	source = EXCLUDED.source`

type pgDilemmaRepository struct {
	db     TxBeginner
	logger *zap.Logger
}

var _ DilemmaRepository = (*pgDilemmaRepository)(nil)

// NewPgDilemmaRepository returns the PostgreSQL dilemma store.
func NewPgDilemmaRepository(db TxBeginner, logger *zap.Logger) DilemmaRepository {
	return &pgDilemmaRepository{db: db, logger: logger.Named("PgDilemmaRepo")}
}

func (r *pgDilemmaRepository) ListIDs(ctx context.Context, language string) ([]string, error) {
	var ids []string
	if err := pgxscan.Select(ctx, r.db, &ids, `SELECT id FROM dilemmas WHERE language = $1 AND source <> $2 ORDER BY id`, language, models.DilemmaSourceAI); err != nil {
		r.logger.Error("Failed to list dilemma ids", zap.String("language", language), zap.Error(err))
		return nil, fmt.Errorf("failed to list dilemma ids: %w", err)
	}
	return ids, nil
}

func (r *pgDilemmaRepository) GetByID(ctx context.Context, id string) (*models.Dilemma, error) {
	var d models.Dilemma
	err := pgxscan.Get(ctx, r.db, &d, `SELECT `+dilemmaColumns+` FROM dilemmas WHERE id = $1`, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrDilemmaNotFound, id)
		}
		r.logger.Error("Failed to get dilemma", zap.String("dilemma_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get dilemma %s: %w", id, err)
	}
	return &d, nil
}

func (r *pgDilemmaRepository) Sample(ctx context.Context, language string, n int) ([]models.Dilemma, error) {
	var out []models.Dilemma
	query := `SELECT ` + dilemmaColumns + ` FROM dilemmas WHERE language = $1 AND source <> $3 ORDER BY random() LIMIT $2`
	if err := pgxscan.Select(ctx, r.db, &out, query, language, n, models.DilemmaSourceAI); err != nil {
		r.logger.Error("Failed to sample dilemmas", zap.String("language", language), zap.Error(err))
		return nil, fmt.Errorf("failed to sample dilemmas: %w", err)
	}
	return out, nil
}

func (r *pgDilemmaRepository) IncrementVote(ctx context.Context, id string, yes bool) (*models.VoteTally, error) {
	query := `UPDATE dilemmas SET no_count = no_count + 1 WHERE id = $1 RETURNING id, yes_count, no_count`
	if yes {
		query = `UPDATE dilemmas SET yes_count = yes_count + 1 WHERE id = $1 RETURNING id, yes_count, no_count`
	}
	var t models.VoteTally
	err := r.db.QueryRow(ctx, query, id).Scan(&t.DilemmaID, &t.YesCount, &t.NoCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrDilemmaNotFound, id)
		}
		r.logger.Error("Failed to increment vote", zap.String("dilemma_id", id), zap.Bool("yes", yes), zap.Error(err))
		return nil, fmt.Errorf("failed to increment vote: %w", err)
	}
	return &t, nil
}

func (r *pgDilemmaRepository) Upsert(ctx context.Context, dilemmas []models.Dilemma) (int, error) {
	if len(dilemmas) == 0 {
		return 0, nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range dilemmas {
		d := &dilemmas[i]
		source := d.Source
		if source == "" {
			source = models.DilemmaSourceSeed
		}
		batch.Queue(upsertDilemmaQuery,
			d.ID, d.BaseID, d.Language, d.Dilemma, d.FirstAnswer, d.SecondAnswer, d.TeaseOption1, d.TeaseOption2,
			d.FirstAnswerEmpathy, d.FirstAnswerIntegrity, d.FirstAnswerResponsibility,
			d.FirstAnswerJustice, d.FirstAnswerAltruism, d.FirstAnswerHonesty,
			d.SecondAnswerEmpathy, d.SecondAnswerIntegrity, d.SecondAnswerResponsibility,
			d.SecondAnswerJustice, d.SecondAnswerAltruism, d.SecondAnswerHonesty,
			d.YesCount, d.NoCount, source)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("Failed to upsert dilemmas", zap.Int("count", len(dilemmas)), zap.Error(err))
		return 0, fmt.Errorf("failed to upsert dilemmas: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit dilemmas: %w", err)
	}
	r.logger.Info("Dilemmas upserted", zap.Int("count", len(dilemmas)))
	return len(dilemmas), nil
}

func (r *pgDilemmaRepository) DeleteByLanguage(ctx context.Context, language string) (int64, error) {
	query, args := `DELETE FROM dilemmas`, []any{}
	if language != "" {
		query, args = query+` WHERE language = $1`, append(args, language)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete dilemmas", zap.String("language", language), zap.Error(err))
		return 0, fmt.Errorf("failed to delete dilemmas: %w", err)
	}
	r.logger.Info("Dilemmas deleted", zap.String("language", language), zap.Int64("count", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (r *pgDilemmaRepository) List(ctx context.Context, language string) ([]models.Dilemma, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + dilemmaColumns + ` FROM dilemmas`)
	var args []any
	if language != "" {
		b.WriteString(` WHERE language = $1`)
		args = append(args, language)
	}
	b.WriteString(` ORDER BY id`)

	var out []models.Dilemma
	if err := pgxscan.Select(ctx, r.db, &out, b.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list dilemmas: %w", err)
	}
	return out, nil
}
