package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/utils"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single model attempt.
const DefaultTimeout = 30 * time.Second

// maxReportedReasons caps how many failures are quoted back to clients.
const maxReportedReasons = 5

// ExhaustedError is returned when every model in the chain failed.
// It always matches models.ErrAIUnavailable, whatever the reasons were.
type ExhaustedError struct {
	Reasons []string
}

func (e *ExhaustedError) Error() string {
	reasons := e.Reasons
	if len(reasons) > maxReportedReasons {
		reasons = reasons[:maxReportedReasons]
	}
	return fmt.Sprintf("All AI models are currently rate-limited. Please try again in a few minutes. (%s)",
		strings.Join(reasons, "; "))
}

func (e *ExhaustedError) Unwrap() error { return models.ErrAIUnavailable }

// Completer is what services need from the AI layer.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// FallbackClient tries an ordered chain of models until one succeeds.
type FallbackClient struct {
	provider Provider
	models   []string
	timeout  time.Duration
	estimate Estimator
	logger   *zap.Logger
}

var _ Completer = (*FallbackClient)(nil)

// Option configures a FallbackClient.
type Option func(*FallbackClient)

// WithTimeout overrides the per-model timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *FallbackClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEstimator replaces the token estimator used when the provider reports no usage.
func WithEstimator(e Estimator) Option {
	return func(c *FallbackClient) {
		if e != nil {
			c.estimate = e
		}
	}
}

// NewFallbackClient builds a client over provider with the given model chain.
func NewFallbackClient(provider Provider, chain []string, logger *zap.Logger, opts ...Option) (*FallbackClient, error) {
	if provider == nil {
		return nil, errors.New("ai provider is required")
	}
	if len(chain) == 0 {
		return nil, errors.New("model chain is empty")
	}
	c := &FallbackClient{
		provider: provider,
		models:   append([]string(nil), chain...),
		timeout:  DefaultTimeout,
		estimate: EstimateTokens,
		logger:   logger.Named("AIClient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Models returns the configured chain.
func (c *FallbackClient) Models() []string {
	return append([]string(nil), c.models...)
}

// Complete runs req against each model in order and returns the first success.
func (c *FallbackClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	reasons := make([]string, 0, len(c.models))
	transportOnly := true

	for i, model := range c.models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logFields := []zap.Field{
			zap.String("provider", c.provider.Name()),
			zap.String("model", model),
			zap.Int("attempt", i+1),
			zap.Int("chain_length", len(c.models)),
		}

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		completion, err := c.provider.Complete(attemptCtx, model, req)
		cancel()
		aiRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

		if err == nil {
			aiRequestsTotal.WithLabelValues(model, "success").Inc()
			c.recordUsage(model, req, completion)
			if i > 0 {
				c.logger.Info("Fallback model succeeded", logFields...)
			}
			return completion, nil
		}

		// The caller gave up; the remaining models would fail the same way.
		if ctx.Err() != nil {
			aiRequestsTotal.WithLabelValues(model, "canceled").Inc()
			return nil, ctx.Err()
		}

		reason, status, transport := classify(err)
		if !transport {
			transportOnly = false
		}
		aiRequestsTotal.WithLabelValues(model, status).Inc()
		reasons = append(reasons, fmt.Sprintf("%s: %s", model, reason))
		c.logger.Warn("Model failed, trying next", append(logFields, zap.String("reason", reason), zap.Error(err))...)
	}

	// A lone model that was never reached is a connectivity failure.
	if len(c.models) == 1 && transportOnly {
		c.logger.Error("AI provider unreachable", zap.String("model", c.models[0]), zap.Strings("reasons", reasons))
		return nil, fmt.Errorf("%w: %s", models.ErrAITransport, reasons[0])
	}

	aiFallbackExhausted.Inc()
	c.logger.Error("All models failed", zap.Strings("reasons", reasons), zap.Bool("transport_only", transportOnly))
	return nil, &ExhaustedError{Reasons: reasons}
}

func (c *FallbackClient) recordUsage(model string, req Request, completion *Completion) {
	u := &completion.Usage
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		var prompt strings.Builder
		for _, m := range req.Messages {
			prompt.WriteString(m.Content)
		}
		u.PromptTokens = c.estimate(prompt.String())
		u.CompletionTokens = c.estimate(completion.Content)
		u.Estimated = true
	}
	estimated := "false"
	if u.Estimated {
		estimated = "true"
	}
	aiPromptTokens.WithLabelValues(model, estimated).Observe(float64(u.PromptTokens))
	aiCompletionTokens.WithLabelValues(model, estimated).Observe(float64(u.CompletionTokens))
}

// classify turns a provider error into a short reason, a metrics status
// and whether the provider could not be reached at all. Timeouts count as
// reached: the model was slow, not missing.
func classify(err error) (reason, status string, transport bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return httpReason(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return httpReason(reqErr.HTTPStatusCode, "")
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return httpReason(statusErr.StatusCode, statusErr.ErrorMessage)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout", "timeout", false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout", "timeout", false
	}
	if errors.Is(err, models.ErrAIBadResponse) {
		return utils.Truncate(err.Error(), 50), "bad_response", false
	}
	return utils.Truncate(err.Error(), 50), "error", true
}

func httpReason(code int, message string) (string, string, bool) {
	if code == http.StatusTooManyRequests {
		if message == "" {
			return "Rate limit exceeded", "rate_limited", false
		}
		return utils.Truncate(message, 100), "rate_limited", false
	}
	return fmt.Sprintf("HTTP %d", code), "http_error", false
}
