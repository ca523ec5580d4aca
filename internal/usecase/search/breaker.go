package search

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 60 * time.Second
	defaultBreakerInterval    time.Duration = 5 * time.Minute
)

// BreakerConfig configures per-engine suspension.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that suspends an engine.
	MaxFailures uint32
	// Timeout is how long a suspended engine stays suspended before a probe.
	Timeout time.Duration
	// Interval clears the failure count of a healthy engine. 0 uses the default.
	Interval time.Duration
}

func newBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[Batch] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	return gobreaker.NewCircuitBreaker[Batch](gobreaker.Settings{
		Name:        "engine:" + name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("engine breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// a request cancelled by the client says nothing about the engine
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
