// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import "time"

// SetNowFunc overrides the clock used for reply timestamps.
func (o *Orchestrator) SetNowFunc(fn func() time.Time) {
	o.nowFunc = fn
}

// Len reports the number of live lanes.
func (p *LanePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lanes)
}
