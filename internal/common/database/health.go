package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health runs named dependency checks concurrently.
type Health struct {
	checks  map[string]Check
	timeout time.Duration
}

func NewHealth(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{checks: make(map[string]Check), timeout: timeout}
}

func (h *Health) Register(name string, check Check) {
	h.checks[name] = check
}

// Report returns "ok" or the error text per dependency and whether all passed.
func (h *Health) Report(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = check(ctx)
		}(i, h.checks[name])
	}
	wg.Wait()

	report := make(map[string]string, len(names))
	healthy := true
	for i, name := range names {
		if results[i] != nil {
			report[name] = results[i].Error()
			healthy = false
			continue
		}
		report[name] = "ok"
	}
	return report, healthy
}
