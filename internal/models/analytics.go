package models

import (
	"encoding/json"
	"time"
)

// Analytics action types.
const (
	ActionDilemmaFetched   = "dilemma_fetched"
	ActionVoteCast         = "vote_cast"
	ActionDilemmaGenerated = "dilemma_generated"
	ActionResultsAnalyzed  = "results_analyzed"
	ActionStoryFlowFetched = "story_flow_fetched"
	ActionStoryNodeVote    = "story_node_vote"
)

// AnalyticsRetention is how long events are kept before cleanup.
const AnalyticsRetention = 90 * 24 * time.Hour

// MaxUserAgentLength caps the stored user agent.
const MaxUserAgentLength = 200

// AnalyticsEvent is one user action published to the analytics queue.
type AnalyticsEvent struct {
	SessionID  string          `json:"sessionId" db:"session_id"`
	Timestamp  int64           `json:"timestamp" db:"timestamp_ms"`
	ActionType string          `json:"actionType" db:"action_type"`
	Language   string          `json:"language" db:"language"`
	ActionData json.RawMessage `json:"actionData" db:"action_data"`
	UserAgent  string          `json:"userAgent" db:"user_agent"`
	HashedIP   string          `json:"hashedIp" db:"hashed_ip"`
	ExpiresAt  int64           `json:"expiresAt" db:"expires_at"`
}
