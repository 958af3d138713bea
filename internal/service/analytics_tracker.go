package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"moral-torture-machine/internal/messaging"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/utils"

	"go.uber.org/zap"
)

const defaultPublishTimeout = 2 * time.Second

// RequestMeta identifies who triggered an analytics event.
type RequestMeta struct {
	SessionID string
	UserAgent string
	ClientIP  string
}

// AnalyticsTracker records user actions. Tracking never fails the request.
type AnalyticsTracker interface {
	Track(ctx context.Context, meta RequestMeta, actionType, language string, data any)
}

type analyticsTrackerImpl struct {
	publisher messaging.AnalyticsPublisher
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

var _ AnalyticsTracker = (*analyticsTrackerImpl)(nil)

// NewAnalyticsTracker creates a tracker publishing to publisher.
func NewAnalyticsTracker(publisher messaging.AnalyticsPublisher, logger *zap.Logger) AnalyticsTracker {
	return &analyticsTrackerImpl{
		publisher: publisher,
		timeout:   defaultPublishTimeout,
		now:       time.Now,
		logger:    logger.Named("AnalyticsTracker"),
	}
}

// NewAnalyticsEvent builds an event with a hashed IP, a truncated user agent
// and the retention expiry.
func NewAnalyticsEvent(meta RequestMeta, actionType, language string, data any, now time.Time) (*models.AnalyticsEvent, error) {
	if language == "" {
		language = DefaultLanguage
	}
	e := &models.AnalyticsEvent{
		SessionID:  meta.SessionID,
		Timestamp:  now.UnixMilli(),
		ActionType: actionType,
		Language:   language,
		UserAgent:  utils.Truncate(meta.UserAgent, models.MaxUserAgentLength),
		ExpiresAt:  now.Add(models.AnalyticsRetention).UnixMilli(),
	}
	if meta.ClientIP != "" {
		e.HashedIP = utils.HashIP(meta.ClientIP)
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal action data: %w", err)
		}
		e.ActionData = raw
	}
	return e, nil
}

func (t *analyticsTrackerImpl) Track(ctx context.Context, meta RequestMeta, actionType, language string, data any) {
	logFields := []zap.Field{zap.String("action", actionType), zap.String("session", shortSession(meta.SessionID))}

	event, err := NewAnalyticsEvent(meta, actionType, language, data, t.now())
	if err != nil {
		analyticsPublishedTotal.WithLabelValues(actionType, "error").Inc()
		t.logger.Error("Failed to build analytics event", append(logFields, zap.Error(err))...)
		return
	}

	// The event outlives a client that disconnects right after the response.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()
	if err := t.publisher.Publish(pubCtx, event); err != nil {
		analyticsPublishedTotal.WithLabelValues(actionType, "error").Inc()
		t.logger.Error("Failed to track analytics event", append(logFields, zap.Error(err))...)
		return
	}
	analyticsPublishedTotal.WithLabelValues(actionType, "ok").Inc()
	t.logger.Debug("Analytics event tracked", logFields...)
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
