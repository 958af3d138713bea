package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moral-torture-machine/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dilemmaIDsKeyPrefix = "mtm:dilemma_ids:"
	storyIDsKeyPrefix   = "mtm:story_ids:"
	storyFlowKeyPrefix  = "mtm:story_flow:"
)

// cachedDilemmaRepository caches the per-language id pool in Redis.
// Dilemma rows are always read from PostgreSQL so vote counts stay current.
type cachedDilemmaRepository struct {
	DilemmaRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ DilemmaRepository = (*cachedDilemmaRepository)(nil)

// NewCachedDilemmaRepository wraps next with a Redis id-pool cache.
func NewCachedDilemmaRepository(next DilemmaRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) DilemmaRepository {
	return &cachedDilemmaRepository{DilemmaRepository: next, client: client, ttl: ttl, logger: logger.Named("DilemmaCache")}
}

func (r *cachedDilemmaRepository) ListIDs(ctx context.Context, language string) ([]string, error) {
	key := dilemmaIDsKeyPrefix + language
	var ids []string
	if ok := getJSON(ctx, r.client, key, &ids, r.logger); ok {
		return ids, nil
	}
	ids, err := r.DilemmaRepository.ListIDs(ctx, language)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		setJSON(ctx, r.client, key, ids, r.ttl, r.logger)
	}
	return ids, nil
}

func (r *cachedDilemmaRepository) Upsert(ctx context.Context, dilemmas []models.Dilemma) (int, error) {
	n, err := r.DilemmaRepository.Upsert(ctx, dilemmas)
	if err != nil {
		return n, err
	}
	langs := make(map[string]struct{})
	for _, d := range dilemmas {
		langs[d.Language] = struct{}{}
	}
	keys := make([]string, 0, len(langs))
	for l := range langs {
		keys = append(keys, dilemmaIDsKeyPrefix+l)
	}
	invalidate(ctx, r.client, r.logger, keys...)
	return n, nil
}

func (r *cachedDilemmaRepository) DeleteByLanguage(ctx context.Context, language string) (int64, error) {
	n, err := r.DilemmaRepository.DeleteByLanguage(ctx, language)
	if err != nil {
		return n, err
	}
	if language == "" {
		invalidatePrefix(ctx, r.client, r.logger, dilemmaIDsKeyPrefix)
	} else {
		invalidate(ctx, r.client, r.logger, dilemmaIDsKeyPrefix+language)
	}
	return n, nil
}

// cachedStoryFlowRepository caches id pools and whole flows. Flows only change through admin writes.
type cachedStoryFlowRepository struct {
	StoryFlowRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ StoryFlowRepository = (*cachedStoryFlowRepository)(nil)

// NewCachedStoryFlowRepository wraps next with a Redis cache.
func NewCachedStoryFlowRepository(next StoryFlowRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) StoryFlowRepository {
	return &cachedStoryFlowRepository{StoryFlowRepository: next, client: client, ttl: ttl, logger: logger.Named("StoryFlowCache")}
}

func (r *cachedStoryFlowRepository) ListIDs(ctx context.Context, language string) ([]string, error) {
	key := storyIDsKeyPrefix + language
	var ids []string
	if ok := getJSON(ctx, r.client, key, &ids, r.logger); ok {
		return ids, nil
	}
	ids, err := r.StoryFlowRepository.ListIDs(ctx, language)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		setJSON(ctx, r.client, key, ids, r.ttl, r.logger)
	}
	return ids, nil
}

func (r *cachedStoryFlowRepository) GetByID(ctx context.Context, id string) (*models.StoryFlow, error) {
	key := storyFlowKeyPrefix + id
	var f models.StoryFlow
	if ok := getJSON(ctx, r.client, key, &f, r.logger); ok {
		return &f, nil
	}
	flow, err := r.StoryFlowRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	setJSON(ctx, r.client, key, flow, r.ttl, r.logger)
	return flow, nil
}

func (r *cachedStoryFlowRepository) Upsert(ctx context.Context, flows []models.StoryFlow) (int, error) {
	n, err := r.StoryFlowRepository.Upsert(ctx, flows)
	if err != nil {
		return n, err
	}
	keys := make([]string, 0, len(flows)*2)
	for _, f := range flows {
		keys = append(keys, storyFlowKeyPrefix+f.ID, storyIDsKeyPrefix+f.Language)
	}
	invalidate(ctx, r.client, r.logger, keys...)
	return n, nil
}

func (r *cachedStoryFlowRepository) DeleteByLanguage(ctx context.Context, language string) (int64, error) {
	n, err := r.StoryFlowRepository.DeleteByLanguage(ctx, language)
	if err != nil {
		return n, err
	}
	invalidatePrefix(ctx, r.client, r.logger, storyFlowKeyPrefix)
	if language == "" {
		invalidatePrefix(ctx, r.client, r.logger, storyIDsKeyPrefix)
	} else {
		invalidate(ctx, r.client, r.logger, storyIDsKeyPrefix+language)
	}
	return n, nil
}

// Cache failures are logged and fall through to PostgreSQL.
func getJSON(ctx context.Context, client *redis.Client, key string, dst any, logger *zap.Logger) bool {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("Cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func setJSON(ctx context.Context, client *redis.Client, key string, v any, ttl time.Duration, logger *zap.Logger) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func invalidate(ctx context.Context, client *redis.Client, logger *zap.Logger, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func invalidatePrefix(ctx context.Context, client *redis.Client, logger *zap.Logger, prefix string) {
	iter := client.Scan(ctx, 0, fmt.Sprintf("%s*", prefix), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cache scan failed", zap.String("prefix", prefix), zap.Error(err))
	}
	invalidate(ctx, client, logger, keys...)
}
