// Package health provides liveness and readiness probe endpoints backed by
// periodically evaluated checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc reports the health of one component; nil means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service evaluates registered checks on an interval and serves
// Kubernetes-style /livez and /readyz endpoints.
type Service struct {
	mu        sync.Mutex
	liveness  []check
	readiness []check
	results   map[string]error
	ready     bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an empty health Service. Register checks before calling Start.
func New() *Service {
	return &Service{results: make(map[string]error)}
}

// AddLivenessCheck registers a check consulted by the liveness endpoint.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check consulted by the readiness endpoint.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, check{name: name, timeout: timeout, fn: fn})
}

// Start launches the background evaluation loop. All checks run once
// immediately, then every interval.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.runAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop terminates the evaluation loop and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// SetReady flips the administrative readiness gate. While false, the
// readiness endpoint fails regardless of check results; used to drain
// traffic before shutdown.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Service) runAll(ctx context.Context) {
	s.mu.Lock()
	checks := make([]check, 0, len(s.liveness)+len(s.readiness))
	checks = append(checks, s.liveness...)
	checks = append(checks, s.readiness...)
	s.mu.Unlock()

	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(cctx)
		cancel()

		s.mu.Lock()
		s.results[c.name] = err
		s.mu.Unlock()
	}
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status, body := s.report(s.liveness, true)
	s.mu.Unlock()
	writeReport(w, status, body)
}

// ReadyEndpoint serves the readiness probe, which also honors the
// administrative gate set by SetReady.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status, body := s.report(s.readiness, s.ready)
	s.mu.Unlock()
	writeReport(w, status, body)
}

// report builds the probe response. The caller must hold s.mu.
func (s *Service) report(checks []check, gate bool) (int, map[string]any) {
	healthy := gate
	details := make(map[string]string, len(checks))
	for _, c := range checks {
		if err, evaluated := s.results[c.name]; evaluated && err != nil {
			healthy = false
			details[c.name] = err.Error()
		} else {
			details[c.name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	}
	return status, map[string]any{"status": overall, "checks": details}
}

func writeReport(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
