package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Status represents the health status of a component
type Status struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// ProbeFunc reports a component's health; nil means healthy
type ProbeFunc func(ctx context.Context) error

type probe struct {
	name string
	fn   ProbeFunc
}

// Checker periodically checks health of the feed's upstream components
type Checker struct {
	mu       sync.RWMutex
	statuses []Status
	probes   []probe
	client   *http.Client
	interval time.Duration
}

// NewChecker creates a new health checker
func NewChecker(interval time.Duration) *Checker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Checker{
		client:   &http.Client{Timeout: 5 * time.Second},
		interval: interval,
	}
}

// AddHTTP registers an endpoint. Any response below 500 counts as reachable.
func (c *Checker) AddHTTP(name, url string) {
	c.AddFunc(name, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	})
}

// AddFunc registers a custom probe
func (c *Checker) AddFunc(name string, fn ProbeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, probe{name: name, fn: fn})
}

// Start checks in the background, once right away and then every interval,
// until ctx is done. It does not wait for the first round of probes.
func (c *Checker) Start(ctx context.Context) {
	go func() {
		c.Check(ctx)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Check(ctx)
			}
		}
	}()
}

// Check probes every component once
func (c *Checker) Check(ctx context.Context) {
	c.mu.RLock()
	probes := append([]probe(nil), c.probes...)
	c.mu.RUnlock()

	statuses := make([]Status, 0, len(probes))
	for _, p := range probes {
		start := time.Now()
		err := p.fn(ctx)
		status := Status{
			Name:    p.name,
			Latency: time.Since(start),
			Healthy: err == nil,
		}
		if err != nil {
			status.Error = err.Error()
			if !errors.Is(err, context.Canceled) {
				log.Debug().Str("component", p.name).Err(err).Msg("health check failed")
			}
		}
		statuses = append(statuses, status)
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// GetStatuses returns current health statuses
func (c *Checker) GetStatuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Status(nil), c.statuses...)
}

// Healthy reports whether every component passed its last check
func (c *Checker) Healthy() bool {
	for _, s := range c.GetStatuses() {
		if !s.Healthy {
			return false
		}
	}
	return true
}
