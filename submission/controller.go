// Copyright 2021 Braden Nicholson. All rights reserved.

package submission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bradenn/hwdemo/schemas"
	"go.uber.org/zap"
)

// ErrBusy is returned when Submit is called outside of the Input state.
var ErrBusy = errors.New("submission: a request is already in progress")

// Mode selects which kind of input the controller accepts.
type Mode int

const (
	SpecMode Mode = iota
	FileMode
)

// Default long wait thresholds used by the generation and compilation views.
const (
	GenerateLongWait = 30 * time.Second
	CompileLongWait  = 60 * time.Second
)

// Transport sends one request to the remote service. A returned
// *schemas.SubmissionError is shown as is; any other error is treated as a
// network failure.
type Transport interface {
	Send(ctx context.Context, req schemas.SubmissionRequest) (*schemas.SubmissionResult, error)
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	State   State
	Elapsed int
	Request *schemas.SubmissionRequest
	Result  *schemas.SubmissionResult
	Err     *schemas.SubmissionError
}

// Controller owns the input -> submitting -> long-wait -> done state machine of a
// single demo view. At most one request is outstanding at any time.
type Controller struct {
	transport Transport
	mode      Mode
	threshold int
	newTicker TickerFunc
	onChange  func(Snapshot)
	log       *zap.Logger

	mu      sync.Mutex
	state   State
	elapsed int
	request *schemas.SubmissionRequest
	result  *schemas.SubmissionResult
	err     *schemas.SubmissionError
	gen     uint64
	seq     uint64
	quit    chan struct{}
	done    chan struct{}

	// callbacks are delivered one at a time in seq order
	cbMu      sync.Mutex
	pending   []update
	draining  bool
	delivered uint64
}

type update struct {
	seq  uint64
	snap Snapshot
}

// Option configures a Controller.
type Option func(*Controller)

// WithMode selects spec or file input. The default is SpecMode.
func WithMode(m Mode) Option {
	return func(c *Controller) { c.mode = m }
}

// WithLongWait sets the elapsed time after which a pending submission is shown
// as a long wait. It is rounded down to whole seconds.
func WithLongWait(d time.Duration) Option {
	return func(c *Controller) { c.threshold = int(d / time.Second) }
}

// WithTicker replaces the one second ticker driving the elapsed counter.
func WithTicker(f TickerFunc) Option {
	return func(c *Controller) { c.newTicker = f }
}

// WithOnChange registers a callback invoked after every state change.
// Callbacks never overlap and arrive in the order the changes happened; an
// update older than one already delivered is dropped.
func WithOnChange(f func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = f }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a controller in the Input state that sends through t.
func New(t Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: t,
		threshold: int(GenerateLongWait / time.Second),
		newTicker: NewStdTicker,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit validates req and, when it is acceptable, sends it. Validation errors
// are returned and leave the controller in Input.
func (c *Controller) Submit(ctx context.Context, req schemas.SubmissionRequest) error {
	c.mu.Lock()
	if c.state != Input {
		c.mu.Unlock()
		return ErrBusy
	}
	if err := c.validate(req); err != nil {
		c.mu.Unlock()
		return err
	}

	frozen := req.Clone()
	c.gen++
	gen := c.gen
	c.state = Submitting
	c.elapsed = 0
	c.request = &frozen
	c.result = nil
	c.err = nil
	c.done = make(chan struct{})
	c.quit = make(chan struct{})
	go c.runTimer(gen, c.newTicker(time.Second), c.quit)
	u := c.updateLocked()
	c.mu.Unlock()

	c.log.Debug("submission started", zap.Uint64("gen", gen), zap.Int("mode", int(c.mode)))
	c.notify(u)

	go func() {
		res, err := c.transport.Send(ctx, frozen)
		c.resolve(gen, res, err)
	}()
	return nil
}

func (c *Controller) validate(req schemas.SubmissionRequest) error {
	if c.mode == FileMode {
		return req.ValidateFile()
	}
	return req.ValidateSpec()
}

func (c *Controller) runTimer(gen uint64, t Ticker, quit <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-quit:
			return
		case <-t.C():
			c.tick(gen)
		}
	}
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.state.Pending() {
		c.mu.Unlock()
		return
	}
	c.elapsed++
	changed := false
	if c.state == Submitting && c.threshold > 0 && c.elapsed >= c.threshold {
		c.state = LongWait
		changed = true
	}
	u := c.updateLocked()
	c.mu.Unlock()

	if changed {
		c.log.Info("submission is taking longer than usual", zap.Int("elapsed", u.snap.Elapsed))
	}
	c.notify(u)
}

func (c *Controller) resolve(gen uint64, res *schemas.SubmissionResult, err error) {
	c.mu.Lock()
	if gen != c.gen || !c.state.Pending() {
		c.mu.Unlock()
		c.log.Debug("discarding response for superseded submission", zap.Uint64("gen", gen))
		return
	}

	if err != nil {
		var se *schemas.SubmissionError
		if !errors.As(err, &se) {
			se = schemas.NewNetworkError(err)
		}
		c.err = se
		c.state = Failure
	} else if res == nil {
		c.err = schemas.NewServerError("")
		c.state = Failure
	} else {
		c.result = res
		c.state = Success
	}
	c.stopLocked()
	u := c.updateLocked()
	c.mu.Unlock()

	snap := u.snap
	if snap.Err != nil {
		c.log.Warn("submission failed", zap.Stringer("kind", snap.Err.Kind), zap.String("message", snap.Err.Message), zap.Error(snap.Err.Err))
	} else {
		c.log.Info("submission succeeded", zap.Int("elapsed", snap.Elapsed), zap.Strings("fields", snap.Result.Names()))
	}
	c.notify(u)
}

// Reset returns to Input from any state. An outstanding request is not aborted,
// its response is ignored when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.gen++
	c.stopLocked()
	c.state = Input
	c.elapsed = 0
	c.request = nil
	c.result = nil
	c.err = nil
	u := c.updateLocked()
	c.mu.Unlock()

	c.notify(u)
}

// stopLocked stops the timer and releases waiters.
func (c *Controller) stopLocked() {
	if c.quit != nil {
		close(c.quit)
		c.quit = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until the pending submission resolves or is reset, then returns
// the state at that point.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:   c.state,
		Elapsed: c.elapsed,
		Result:  c.result.Clone(),
	}
	if c.request != nil {
		r := c.request.Clone()
		s.Request = &r
	}
	if c.err != nil {
		e := *c.err
		s.Err = &e
	}
	return s
}

// updateLocked numbers the current state for delivery.
func (c *Controller) updateLocked() update {
	c.seq++
	return update{seq: c.seq, snap: c.snapshotLocked()}
}

// notify queues u and, unless another goroutine is already delivering, drains
// the queue. A callback may call back into the controller; its own update is
// delivered after it returns.
func (c *Controller) notify(u update) {
	if c.onChange == nil {
		return
	}
	c.cbMu.Lock()
	c.pending = append(c.pending, u)
	if c.draining {
		c.cbMu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		if next.seq <= c.delivered {
			continue
		}
		c.delivered = next.seq
		c.cbMu.Unlock()
		c.onChange(next.snap)
		c.cbMu.Lock()
	}
	c.draining = false
	c.cbMu.Unlock()
}
