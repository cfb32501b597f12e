package health

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search still answers, with fewer signals.
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot answer.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	Keyword   = "keyword"
	Vector    = "vector"
	Metadata  = "metadata"
	Embedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Components are the backends serving each role. Embedding may be nil.
type Components struct {
	Keyword   Pinger
	Vector    Pinger
	Metadata  Pinger
	Embedding EmbeddingChecker
}

// Service coordinates health checks.
type Service struct {
	c Components
}

// New creates a Service.
func New(c Components) *Service {
	return &Service{c: c}
}

// Check runs all component checks concurrently.
//
// Metadata down, or keyword and semantic retrieval both down, is Unhealthy.
// Any other failure is Degraded: hybrid search falls back to one side.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, 4)
	)
	set := func(name string, err error) {
		res := CheckOK
		if err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	var g errgroup.Group
	for name, p := range map[string]Pinger{Keyword: s.c.Keyword, Vector: s.c.Vector, Metadata: s.c.Metadata} {
		if p == nil {
			continue
		}
		g.Go(func() error {
			set(name, p.Ping(ctx))
			return nil
		})
	}
	if s.c.Embedding != nil {
		g.Go(func() error {
			set(Embedding, s.c.Embedding.HealthCheck(ctx))
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func aggregate(checks map[string]CheckResult) Status {
	failed := func(name string) bool { return checks[name] == CheckError }

	semanticDown := failed(Vector) || failed(Embedding)
	switch {
	case failed(Metadata), failed(Keyword) && semanticDown:
		return Unhealthy
	case failed(Keyword), semanticDown:
		return Degraded
	default:
		return Healthy
	}
}
