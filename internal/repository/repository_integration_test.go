package repository_test

import (
	"context"
	"testing"
	"time"

	"moral-torture-machine/internal/database"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RepositorySuite struct {
	suite.Suite
	pgContainer    *postgres.PostgresContainer
	redisContainer *tcredis.RedisContainer
	pool           *pgxpool.Pool
	rdb            *redis.Client

	dilemmas  repository.DilemmaRepository
	flows     repository.StoryFlowRepository
	nodeVotes repository.StoryNodeVoteRepository
	analytics repository.AnalyticsRepository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("mtm-test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	s.Require().NoError(err)
	s.pgContainer = pgContainer
	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(database.NewMigrator(dsn, zap.NewNop()).Up())

	s.pool, err = pgxpool.New(ctx, dsn)
	s.Require().NoError(err)

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.redisContainer = redisContainer
	redisURL, err := redisContainer.ConnectionString(ctx)
	s.Require().NoError(err)
	opts, err := redis.ParseURL(redisURL)
	s.Require().NoError(err)
	s.rdb = redis.NewClient(opts)

	logger := zap.NewNop()
	s.dilemmas = repository.NewCachedDilemmaRepository(repository.NewPgDilemmaRepository(s.pool, logger), s.rdb, time.Minute, logger)
	s.flows = repository.NewCachedStoryFlowRepository(repository.NewPgStoryFlowRepository(s.pool, logger), s.rdb, time.Minute, logger)
	s.nodeVotes = repository.NewPgStoryNodeVoteRepository(s.pool, logger)
	s.analytics = repository.NewPgAnalyticsRepository(s.pool, logger)
}

func (s *RepositorySuite) TearDownSuite() {
	ctx := context.Background()
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redisContainer != nil {
		_ = s.redisContainer.Terminate(ctx)
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(ctx)
	}
}

func (s *RepositorySuite) SetupTest() {
	ctx := context.Background()
	_, err := s.dilemmas.DeleteByLanguage(ctx, "")
	s.Require().NoError(err)
	_, err = s.flows.DeleteByLanguage(ctx, "")
	s.Require().NoError(err)
	s.Require().NoError(s.rdb.FlushDB(ctx).Err())
}

func (s *RepositorySuite) TestDilemmaLifecycle() {
	ctx := context.Background()
	n, err := s.dilemmas.Upsert(ctx, []models.Dilemma{
		{ID: "lie-en", BaseID: "lie", Language: "en", Dilemma: "Lie?", FirstAnswer: "Yes", SecondAnswer: "No", FirstAnswerHonesty: -5},
		{ID: "lie-it", BaseID: "lie", Language: "it", Dilemma: "Mentire?", FirstAnswer: "Sì", SecondAnswer: "No"},
	})
	s.Require().NoError(err)
	s.Equal(2, n)

	ids, err := s.dilemmas.ListIDs(ctx, "en")
	s.Require().NoError(err)
	s.Equal([]string{"lie-en"}, ids)

	tally, err := s.dilemmas.IncrementVote(ctx, "lie-en", true)
	s.Require().NoError(err)
	s.Equal(int64(1), tally.YesCount)
	tally, err = s.dilemmas.IncrementVote(ctx, "lie-en", false)
	s.Require().NoError(err)
	s.Equal(int64(1), tally.NoCount)

	d, err := s.dilemmas.GetByID(ctx, "lie-en")
	s.Require().NoError(err)
	s.Equal(-5.0, d.FirstAnswerHonesty)
	s.Equal(int64(1), d.YesCount)
	s.Equal(models.DilemmaSourceSeed, d.Source)

	_, err = s.dilemmas.IncrementVote(ctx, "missing", true)
	s.ErrorIs(err, models.ErrDilemmaNotFound)
	_, err = s.dilemmas.GetByID(ctx, "missing")
	s.ErrorIs(err, models.ErrDilemmaNotFound)

	sample, err := s.dilemmas.Sample(ctx, "it", 5)
	s.Require().NoError(err)
	s.Len(sample, 1)

	_, err = s.dilemmas.Upsert(ctx, []models.Dilemma{{ID: "trolley-en", BaseID: "trolley", Language: "en", Dilemma: "x", FirstAnswer: "a", SecondAnswer: "b"}})
	s.Require().NoError(err)
	ids, err = s.dilemmas.ListIDs(ctx, "en")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"lie-en", "trolley-en"}, ids, "cache must be invalidated by upsert")

	deleted, err := s.dilemmas.DeleteByLanguage(ctx, "en")
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)
	ids, err = s.dilemmas.ListIDs(ctx, "en")
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *RepositorySuite) TestGeneratedDilemmasAreNotServed() {
	ctx := context.Background()
	_, err := s.dilemmas.Upsert(ctx, []models.Dilemma{
		{ID: "lie-en", BaseID: "lie", Language: "en", Dilemma: "Lie?", FirstAnswer: "Yes", SecondAnswer: "No", FirstAnswerHonesty: -5},
		{ID: "ai-1-en", BaseID: "ai-1", Language: "en", Dilemma: "Steal?", FirstAnswer: "Yes", SecondAnswer: "No", Source: models.DilemmaSourceAI},
	})
	s.Require().NoError(err)

	ids, err := s.dilemmas.ListIDs(ctx, "en")
	s.Require().NoError(err)
	s.Equal([]string{"lie-en"}, ids)

	sample, err := s.dilemmas.Sample(ctx, "en", 5)
	s.Require().NoError(err)
	s.Require().Len(sample, 1)
	s.Equal("lie-en", sample[0].ID)

	d, err := s.dilemmas.GetByID(ctx, "ai-1-en")
	s.Require().NoError(err)
	s.Equal(models.DilemmaSourceAI, d.Source)

	all, err := s.dilemmas.List(ctx, "en")
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *RepositorySuite) TestStoryFlowAndNodeVotes() {
	ctx := context.Background()
	flow := models.StoryFlow{
		ID: "trolley-en", BaseID: "trolley", Language: "en", Title: "Trolley",
		Nodes: map[string]models.StoryNode{
			"1": {Dilemma: "Pull?", FirstAnswer: "Yes", SecondAnswer: "No", NextNodeOnFirst: "2"},
			"2": {Dilemma: "Confess?", IsLeaf: true, Depth: 1},
		},
	}
	_, err := s.flows.Upsert(ctx, []models.StoryFlow{flow})
	s.Require().NoError(err)

	got, err := s.flows.GetByID(ctx, "trolley-en")
	s.Require().NoError(err)
	s.Equal("2", got.Nodes["1"].NextNodeOnFirst)
	s.True(got.Nodes["2"].IsLeaf)

	cached, err := s.flows.GetByID(ctx, "trolley-en")
	s.Require().NoError(err)
	s.Equal(got.Title, cached.Title)

	_, err = s.flows.GetByID(ctx, "nope-en")
	s.ErrorIs(err, models.ErrStoryNotFound)

	stats, err := s.nodeVotes.Increment(ctx, "trolley-en", "1", true)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.FirstCount)
	stats, err = s.nodeVotes.Increment(ctx, "trolley-en", "1", false)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.SecondCount)

	stats, err = s.nodeVotes.Get(ctx, "trolley-en", "2")
	s.Require().NoError(err)
	s.Zero(stats.FirstCount)

	_, err = s.nodeVotes.Increment(ctx, "ghost-en", "1", true)
	s.ErrorIs(err, models.ErrStoryNotFound)
}

func (s *RepositorySuite) TestAnalyticsInsertAndExpire() {
	ctx := context.Background()
	now := time.Now().UnixMilli()
	s.Require().NoError(s.analytics.Insert(ctx, &models.AnalyticsEvent{
		SessionID: "sess-1", Timestamp: now, ActionType: models.ActionVoteCast, Language: "en",
		ActionData: []byte(`{"dilemmaId":"lie-en"}`), ExpiresAt: now - 1,
	}))
	s.Require().NoError(s.analytics.Insert(ctx, &models.AnalyticsEvent{
		SessionID: "sess-1", Timestamp: now, ActionType: models.ActionDilemmaFetched, Language: "en",
		ExpiresAt: now + int64(models.AnalyticsRetention/time.Millisecond),
	}))

	count, err := s.analytics.CountBySession(ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	deleted, err := s.analytics.DeleteExpired(ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)
}
