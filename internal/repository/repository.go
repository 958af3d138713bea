package repository

import (
	"context"

	"moral-torture-machine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts transactions. *pgxpool.Pool implements it.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DilemmaRepository stores dilemmas and their vote counts.
type DilemmaRepository interface {
	// ListIDs returns the ids of the curated dilemmas in language.
	// Generated dilemmas carry no trait scores and are never served.
	ListIDs(ctx context.Context, language string) ([]string, error)
	GetByID(ctx context.Context, id string) (*models.Dilemma, error)
	// Sample returns up to n random curated dilemmas of language.
	Sample(ctx context.Context, language string, n int) ([]models.Dilemma, error)
	// IncrementVote atomically adds one yes or no vote and returns the new counts.
	IncrementVote(ctx context.Context, id string, yes bool) (*models.VoteTally, error)
	Upsert(ctx context.Context, dilemmas []models.Dilemma) (int, error)
	// DeleteByLanguage removes dilemmas of language, or all when language is empty.
	DeleteByLanguage(ctx context.Context, language string) (int64, error)
	// List returns dilemmas of language, or all when language is empty.
	List(ctx context.Context, language string) ([]models.Dilemma, error)
}

// StoryFlowRepository stores branching stories.
type StoryFlowRepository interface {
	ListIDs(ctx context.Context, language string) ([]string, error)
	GetByID(ctx context.Context, id string) (*models.StoryFlow, error)
	Upsert(ctx context.Context, flows []models.StoryFlow) (int, error)
	DeleteByLanguage(ctx context.Context, language string) (int64, error)
	List(ctx context.Context, language string) ([]models.StoryFlow, error)
}

// StoryNodeVoteRepository keeps the community split of every story node.
type StoryNodeVoteRepository interface {
	Increment(ctx context.Context, flowID, nodeID string, first bool) (*models.StoryNodeStats, error)
	// Get returns zero counts for a node nobody voted on.
	Get(ctx context.Context, flowID, nodeID string) (*models.StoryNodeStats, error)
}

// AnalyticsRepository persists analytics events.
type AnalyticsRepository interface {
	Insert(ctx context.Context, event *models.AnalyticsEvent) error
	// DeleteExpired removes events whose expiry is before nowMs.
	DeleteExpired(ctx context.Context, nowMs int64) (int64, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}
