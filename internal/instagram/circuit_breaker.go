// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package instagram

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
)

// CircuitBreakerClient wraps an API with a circuit breaker so a failing
// upstream is not hammered by every notification and poll tick.
//
// The breaker uses real time for its interval and timeout. Tests exercise
// the trip logic through a short Timeout rather than a fake clock.
type CircuitBreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// BreakerSettings tunes the breaker. Zero values select defaults.
type BreakerSettings struct {
	// MinRequests before the failure ratio is considered. Default 10.
	MinRequests uint32
	// FailureRatio that opens the circuit. Default 0.6.
	FailureRatio float64
	// Timeout spent open before probing. Default 2m.
	Timeout time.Duration
}

// NewCircuitBreakerClient wraps api.
//
//   - up to 3 probe requests while half-open
//   - counts reset every minute while closed
//   - opens at the failure ratio once MinRequests were seen
func NewCircuitBreakerClient(api API, settings BreakerSettings) *CircuitBreakerClient {
	if settings.MinRequests == 0 {
		settings.MinRequests = 10
	}
	if settings.FailureRatio == 0 {
		settings.FailureRatio = 0.6
	}
	if settings.Timeout == 0 {
		settings.Timeout = 2 * time.Minute
	}
	cbName := "instagram-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= settings.FailureRatio
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		// A permanent API answer such as "media not found" says nothing
		// about upstream health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429
		},
	})

	return &CircuitBreakerClient{api: api, cb: cb, name: cbName}
}

// State returns the current breaker state name.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			counts := cbc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// MediaInfo implements API.
func (cbc *CircuitBreakerClient) MediaInfo(ctx context.Context, mediaID, accessToken string) (*models.SocialMedia, error) {
	return castResult[models.SocialMedia](cbc.execute(func() (interface{}, error) {
		return cbc.api.MediaInfo(ctx, mediaID, accessToken)
	}))
}

// RecentTagged implements API.
func (cbc *CircuitBreakerClient) RecentTagged(ctx context.Context, tag, minTagID, accessToken string) (*models.TagPage, error) {
	return castResult[models.TagPage](cbc.execute(func() (interface{}, error) {
		return cbc.api.RecentTagged(ctx, tag, minTagID, accessToken)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
