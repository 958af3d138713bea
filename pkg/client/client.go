// Package client is a Go SDK for the Moral Torture Machine HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"moral-torture-machine/internal/models"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// API paths.
const (
	PathGetDilemma      = "/get-dilemma"
	PathVote            = "/vote"
	PathAnalyzeResults  = "/analyze-results"
	PathGetStoryFlow    = "/get-story-flow"
	PathStoryNodeVote   = "/story-node-vote"
	PathGenerateDilemma = "/generate-dilemma"
	PathStoryNodeStats  = "/story-node-stats"
)

// SessionHeader carries the client session id on every request.
const SessionHeader = "X-Session-Id"

// DefaultMaxAttempts is the attempt count of retried calls.
const DefaultMaxAttempts = 5

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "en"

// ErrMaxRetries is returned when every attempt of a retried call failed.
var ErrMaxRetries = errors.New("max retries reached")

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Client talks to the API server.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
	maxAttempts int
	language    string

	mu        sync.RWMutex
	sessionID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxAttempts overrides the attempt count of retried calls.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithLanguage sets the language sent by calls that do not take one.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// New returns a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      zap.NewNop(),
		maxAttempts: DefaultMaxAttempts,
		language:    DefaultLanguage,
		sessionID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the id sent in X-Session-Id.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// ResetSession starts a new analytics session.
func (c *Client) ResetSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = uuid.NewString()
	return c.sessionID
}

// Language returns the default language of the client.
func (c *Client) Language() string { return c.language }

// VoteResponse is the body of POST /vote.
type VoteResponse struct {
	Message string           `json:"message"`
	Updated map[string]int64 `json:"updated"`
}

// AnalysisRequest is the body of POST /analyze-results.
type AnalysisRequest struct {
	Answers             []map[string]float64       `json:"answers"`
	DilemmasWithChoices []models.DilemmaWithChoice `json:"dilemmasWithChoices,omitempty"`
}

// AnalysisResponse is the body returned by POST /analyze-results.
type AnalysisResponse struct {
	Analysis string             `json:"analysis"`
	Averages map[string]float64 `json:"averages"`
}

// GetDilemma fetches a random dilemma not in exclude. Failures are retried.
func (c *Client) GetDilemma(ctx context.Context, language string, exclude []string) (*models.Dilemma, error) {
	q := c.query(language)
	if len(exclude) > 0 {
		q.Set("exclude", strings.Join(exclude, ","))
	}
	var d models.Dilemma
	err := c.retry(ctx, "get dilemma", func() error {
		d = models.Dilemma{}
		return c.do(ctx, http.MethodGet, PathGetDilemma, q, nil, &d)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GenerateDilemma asks the server for a new AI dilemma. Failures, including
// unparsable model output, are retried.
func (c *Client) GenerateDilemma(ctx context.Context, language string) (*models.GeneratedDilemma, error) {
	q := c.query(language)
	var gen models.GeneratedDilemma
	err := c.retry(ctx, "generate dilemma", func() error {
		var resp openai.ChatCompletionResponse
		if err := c.do(ctx, http.MethodPost, PathGenerateDilemma, q, nil, &resp); err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: no choices", models.ErrAIBadResponse)
		}
		parsed, err := ParseGeneratedDilemma(resp.Choices[0].Message.Content)
		if err != nil {
			return err
		}
		gen = *parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &gen, nil
}

// ParseGeneratedDilemma decodes model output, tolerating a Markdown code fence.
func ParseGeneratedDilemma(content string) (*models.GeneratedDilemma, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	var gen models.GeneratedDilemma
	if err := json.Unmarshal([]byte(s), &gen); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAIBadResponse, err)
	}
	gen.Dilemma = strings.TrimSpace(gen.Dilemma)
	if gen.Dilemma == "" || gen.FirstAnswer == "" || gen.SecondAnswer == "" {
		return nil, fmt.Errorf("%w: missing fields", models.ErrAIBadResponse)
	}
	return &gen, nil
}

// Vote records a yes/no vote on a dilemma.
func (c *Client) Vote(ctx context.Context, dilemmaID string, yes bool) (*VoteResponse, error) {
	vote := models.VoteNo
	if yes {
		vote = models.VoteYes
	}
	body := map[string]string{"_id": dilemmaID, "vote": vote}
	var resp VoteResponse
	if err := c.do(ctx, http.MethodPost, PathVote, c.query(""), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AnalyzeResults requests the averages and the AI written analysis.
func (c *Client) AnalyzeResults(ctx context.Context, language string, answers []map[string]float64, choices []models.DilemmaWithChoice) (*AnalysisResponse, error) {
	req := AnalysisRequest{Answers: answers, DilemmasWithChoices: choices}
	var resp AnalysisResponse
	if err := c.do(ctx, http.MethodPost, PathAnalyzeResults, c.query(language), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStoryFlow fetches flowID, or a random flow when flowID is empty.
func (c *Client) GetStoryFlow(ctx context.Context, language, flowID string) (*models.StoryFlow, error) {
	q := c.query(language)
	if flowID != "" {
		q.Set("flowId", flowID)
	}
	var flow models.StoryFlow
	if err := c.do(ctx, http.MethodGet, PathGetStoryFlow, q, nil, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// StoryNodeVote records a choice on a story node and returns the next node.
func (c *Client) StoryNodeVote(ctx context.Context, flowID, nodeID string, first bool) (*models.StoryVoteResult, error) {
	vote := models.StoryVoteSecond
	if first {
		vote = models.StoryVoteFirst
	}
	body := map[string]string{"flowId": flowID, "nodeId": nodeID, "vote": vote}
	var resp models.StoryVoteResult
	if err := c.do(ctx, http.MethodPost, PathStoryNodeVote, c.query(""), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StoryNodeStats returns the community split of a story node.
func (c *Client) StoryNodeStats(ctx context.Context, flowID, nodeID string) (*models.StoryNodeStats, error) {
	q := c.query("")
	q.Set("flowId", flowID)
	q.Set("nodeId", nodeID)
	var stats models.StoryNodeStats
	if err := c.do(ctx, http.MethodGet, PathStoryNodeStats, q, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) query(language string) url.Values {
	if language == "" {
		language = c.language
	}
	q := url.Values{}
	q.Set("language", language)
	return q
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(SessionHeader, c.SessionID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// retry runs fn up to maxAttempts times with no delay between attempts.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		c.logger.Warn("Attempt failed",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(lastErr))
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrMaxRetries, c.maxAttempts, lastErr)
}
