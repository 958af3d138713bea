package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Health statuses.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

const defaultCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency. A failing critical check makes the
// service unhealthy; any other failure only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthService runs dependency checks.
type HealthService struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthService creates a HealthService over checks.
func NewHealthService(logger *zap.Logger, checks ...HealthCheck) *HealthService {
	return &HealthService{checks: checks, timeout: defaultCheckTimeout, logger: logger.Named("HealthService")}
}

// Check runs every check concurrently.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    HealthHealthy,
		Timestamp: time.Now().Unix(),
		Checks:    make(map[string]string, len(s.checks)),
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, hc := range s.checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			err := hc.Check(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				report.Checks[hc.Name] = "ok"
				return nil
			}
			report.Checks[hc.Name] = "error: " + err.Error()
			s.logger.Warn("Health check failed", zap.String("check", hc.Name), zap.Bool("critical", hc.Critical), zap.Error(err))
			if hc.Critical {
				report.Status = HealthUnhealthy
			} else if report.Status == HealthHealthy {
				report.Status = HealthDegraded
			}
			// Never abort the other checks.
			return nil
		})
	}
	_ = g.Wait()
	return report
}
