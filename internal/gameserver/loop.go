// Package gameserver hosts a combat engine Context behind a single tick loop
// goroutine and exposes it to remote hosts over gRPC.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/engine"
)

// ErrLoopStopped is returned by Do once the loop has stopped.
var ErrLoopStopped = errors.New("tick loop stopped")

type request struct {
	fn   func(*engine.Context) error
	done chan error
}

// Loop owns an engine Context. It advances the Context once per interval and
// runs submitted work between ticks, so the Context is only ever touched by
// the loop goroutine.
type Loop struct {
	ctx      *engine.Context
	interval time.Duration
	requests chan request
	stop     chan struct{}
	stopped  chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

// NewLoop creates a stopped Loop for ctx.
//
// Precondition: interval > 0; ctx and logger must be non-nil.
func NewLoop(ctx *engine.Context, interval time.Duration, logger *zap.Logger) *Loop {
	if interval <= 0 {
		panic("gameserver.NewLoop: interval must be > 0")
	}
	return &Loop{
		ctx:      ctx,
		interval: interval,
		requests: make(chan request),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
	}
}

// Start runs the loop until Stop is called. It implements server.Service.
//
// Postcondition: Do returns ErrLoopStopped after Start returns.
func (l *Loop) Start() error {
	defer close(l.stopped)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	l.logger.Info("tick loop started", zap.Duration("interval", l.interval))
	for {
		select {
		case <-l.stop:
			l.logger.Info("tick loop stopped", zap.Int64("tick", int64(l.ctx.Now())))
			return nil
		case <-ticker.C:
			l.tick()
		case req := <-l.requests:
			req.done <- l.run(req.fn)
		}
	}
}

// Stop ends the loop. Calling Stop more than once is safe.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once the loop has exited.
func (l *Loop) Done() <-chan struct{} { return l.stopped }

// Do runs fn on the loop goroutine between ticks, settles every dirty
// profile, and returns fn's error. A panic in fn is recovered and returned as
// an error.
//
// Postcondition: returns ctx.Err() if ctx ends before fn runs, or
// ErrLoopStopped if the loop is not running.
func (l *Loop) Do(ctx context.Context, fn func(*engine.Context) error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case l.requests <- req:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.done
}

func (l *Loop) run(fn func(*engine.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("recovered panic in loop request", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("loop request panicked: %v", r)
		}
		l.ctx.SettleAll()
	}()
	return fn(l.ctx)
}

func (l *Loop) tick() {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("recovered panic in tick", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	l.ctx.Tick()
}
