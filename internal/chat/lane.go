// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
)

// laneBacklog bounds how many turns may wait behind the one in flight.
const laneBacklog = 64

// queuedTurn is one unit of conversation work: a full turn or a clear.
type queuedTurn struct {
	ctx   context.Context
	apply func(context.Context) error
	done  chan<- error
}

// Lane serializes the work of a single conversation. Turns and clears run
// one at a time in the order they were submitted, so a clear never lands
// between a user turn and its reply.
type Lane struct {
	conversationID string

	backlog  chan queuedTurn
	finished chan struct{}
	retiring chan struct{}
	retire   sync.Once

	// pending counts turns submitted but not yet settled.
	pending atomic.Int32
	// holders is guarded by the owning pool's mutex.
	holders int
	// onIdle runs on the worker when pending drops to zero.
	onIdle func(*Lane)
}

// NewLane starts the worker for conversationID. Call Close to stop it.
func NewLane(conversationID string) *Lane {
	return newLane(conversationID, nil)
}

func newLane(conversationID string, onIdle func(*Lane)) *Lane {
	l := &Lane{
		conversationID: conversationID,
		backlog:        make(chan queuedTurn, laneBacklog),
		finished:       make(chan struct{}),
		retiring:       make(chan struct{}),
		onIdle:         onIdle,
	}
	go l.work()
	return l
}

func (l *Lane) work() {
	defer close(l.finished)
	for {
		select {
		case t := <-l.backlog:
			l.apply(t)
		case <-l.retiring:
			for {
				select {
				case t := <-l.backlog:
					l.apply(t)
				default:
					return
				}
			}
		}
	}
}

func (l *Lane) apply(t queuedTurn) {
	if err := t.ctx.Err(); err != nil {
		slog.Debug("queued conversation work skipped, caller gave up",
			"conversation_id", l.conversationID,
			"error", err)
		l.settle()
		t.done <- err
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("conversation turn panicked",
					"conversation_id", l.conversationID,
					"panic", r,
					"stack", string(debug.Stack()))
				err = parleyerr.Errorf(parleyerr.CodeChatTurnFailure, "turn panicked: %v", r)
			}
		}()
		err = t.apply(t.ctx)
	}()

	l.settle()
	t.done <- err
}

// settle marks one submitted turn as finished.
func (l *Lane) settle() {
	if l.pending.Add(-1) == 0 && l.onIdle != nil {
		l.onIdle(l)
	}
}

// Submit queues fn behind earlier work on the conversation and waits for it
// to finish. Work whose ctx is done before it starts is skipped and
// ctx.Err() is returned.
func (l *Lane) Submit(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-l.retiring:
		return l.closedErr()
	default:
	}

	done := make(chan error, 1)
	l.pending.Add(1)
	select {
	case <-ctx.Done():
		l.pending.Add(-1)
		return ctx.Err()
	case <-l.retiring:
		l.pending.Add(-1)
		return l.closedErr()
	case l.backlog <- queuedTurn{ctx: ctx, apply: fn, done: done}:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	case <-l.finished:
		// Work queued while the lane was retiring may not have been picked
		// up.
		select {
		case err := <-done:
			return err
		default:
			return l.closedErr()
		}
	}
}

func (l *Lane) closedErr() error {
	return parleyerr.New(parleyerr.CodeChatLaneClosed, "conversation lane is closed",
		parleyerr.FieldConversationID(l.conversationID))
}

// stop stops accepting work without waiting for the worker.
func (l *Lane) stop() {
	l.retire.Do(func() { close(l.retiring) })
}

// Close stops accepting work, finishes whatever is already queued and
// returns once the worker has exited. Safe to call more than once.
func (l *Lane) Close() {
	l.stop()
	<-l.finished
}

// LanePool hands out one Lane per active conversation. A lane lives while
// someone holds it or work is queued on it, so an idle conversation costs
// nothing beyond its stored turns.
type LanePool struct {
	mu     sync.Mutex
	lanes  map[string]*Lane
	closed bool
}

func NewLanePool() *LanePool {
	return &LanePool{lanes: make(map[string]*Lane)}
}

// Acquire returns the lane for conversationID and holds it until Release.
// After Close it returns a lane that rejects all work.
func (p *LanePool) Acquire(conversationID string) *Lane {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.lanes[conversationID]; ok {
		l.holders++
		return l
	}

	if p.closed {
		l := NewLane(conversationID)
		l.Close()
		return l
	}

	l := newLane(conversationID, p.retireIfIdle)
	l.holders = 1
	p.lanes[conversationID] = l
	slog.Debug("conversation lane started", "conversation_id", conversationID)
	return l
}

// Release drops a hold taken by Acquire.
func (p *LanePool) Release(l *Lane) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lanes[l.conversationID] != l {
		return
	}
	if l.holders > 0 {
		l.holders--
	}
	p.retireLocked(l)
}

func (p *LanePool) retireIfIdle(l *Lane) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lanes[l.conversationID] != l {
		return
	}
	p.retireLocked(l)
}

func (p *LanePool) retireLocked(l *Lane) {
	if l.holders > 0 || l.pending.Load() > 0 {
		return
	}
	delete(p.lanes, l.conversationID)
	l.stop()
	slog.Debug("conversation lane retired", "conversation_id", l.conversationID)
}

// Close drains and stops every lane.
func (p *LanePool) Close() {
	p.mu.Lock()
	lanes := p.lanes
	p.lanes = make(map[string]*Lane)
	p.closed = true
	p.mu.Unlock()

	for _, l := range lanes {
		l.Close()
	}
}
