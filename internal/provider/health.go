// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package provider

import (
	"sync"
	"time"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/parley-chat/parley/pkg/health"
)

// HealthTracker records the outcome of upstream calls for one provider.
// A provider is considered healthy until RecordFailure is called. After a
// failure it is reported as degraded for a cooldown period, or until the
// next successful call.
type HealthTracker struct {
	mu            sync.RWMutex
	name          string
	healthy       bool
	failedAt      time.Time
	lastErrorCode parleyerr.Code
	cooldown      time.Duration
	successCount  int64
	failureCount  int64
	nowFunc       func() time.Time // for testing
}

// DefaultHealthCooldown is how long a failure keeps the provider degraded.
const DefaultHealthCooldown = 30 * time.Second

// NewHealthTracker creates a HealthTracker that starts healthy.
// Returns an error if cooldown is zero or negative.
func NewHealthTracker(name string, cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, parleyerr.Errorf(parleyerr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{
		name:     name,
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// isHealthyLocked reports whether the provider is healthy or the cooldown
// has elapsed. The caller MUST hold at least h.mu.RLock.
func (h *HealthTracker) isHealthyLocked() bool {
	if h.healthy {
		return true
	}
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

// IsHealthy returns true if the provider is healthy or the cooldown has elapsed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

// RecordSuccess marks the provider as healthy.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.successCount++
	h.mu.Unlock()
}

// RecordFailure marks the provider as degraded and remembers the error code
// of the failure.
func (h *HealthTracker) RecordFailure(err error) {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.nowFunc()
	h.lastErrorCode = parleyerr.CodeOf(err)
	h.failureCount++
	h.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// HealthMetrics returns a point-in-time snapshot of the tracker's state.
func (h *HealthTracker) HealthMetrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		Provider:      h.name,
		SuccessCount:  h.successCount,
		FailureCount:  h.failureCount,
		LastErrorCode: string(h.lastErrorCode),
		Available:     h.isHealthyLocked(),
	}

	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}

	if !h.healthy {
		until := h.failedAt.Add(h.cooldown)
		m.DegradedUntil = &until
	}
	return m
}
