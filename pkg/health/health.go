// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package health

import "time"

// Metrics exposes the current health state of the active response provider
// for operator visibility. All fields are point-in-time snapshots safe to
// serialize to JSON.
type Metrics struct {
	Provider      string     `json:"provider"`
	SuccessCount  int64      `json:"success_count"`
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastErrorCode string     `json:"last_error_code,omitempty"`
	DegradedUntil *time.Time `json:"degraded_until,omitempty"`
	Available     bool       `json:"available"`
}
