// Package waiter polls a span source until the expected number of distinct
// traces has been exported or a timeout expires.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"tracecheck/internal/config"
	"tracecheck/internal/trace"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
)

var (
	// ErrInvalidTraceCount is returned when the expected trace count is not positive
	ErrInvalidTraceCount = errors.New("expected trace count must be positive")

	// ErrTimeout matches every *WaitTimeoutError via errors.Is
	ErrTimeout = errors.New("timed out waiting for traces")
)

// Source yields every span collected so far. Each call returns the complete
// current snapshot, not a delta.
type Source interface {
	FetchSpans(ctx context.Context) ([]trace.RawSpan, error)
}

// State is the position of a wait in its lifecycle
type State int

const (
	StateIdle State = iota
	StatePolling
	StateSatisfied
	StateTimedOut
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSatisfied:
		return "satisfied"
	case StateTimedOut:
		return "timed out"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WaitTimeoutError reports that the expected number of traces did not arrive
// in time. Batch holds the spans of the last successful poll.
type WaitTimeoutError struct {
	Expected int
	Observed int
	Timeout  time.Duration
	Polls    int
	Batch    []trace.RawSpan
	LastErr  error // Last fetch failure, if any
}

func (e *WaitTimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %d traces: observed %d after %d polls",
		e.Timeout, e.Expected, e.Observed, e.Polls)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last fetch error: %v)", e.LastErr)
	}
	return msg
}

func (e *WaitTimeoutError) Unwrap() error {
	return e.LastErr
}

func (e *WaitTimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Option configures a Waiter
type Option func(*Waiter)

// WithPollInterval sets the delay between polls
func WithPollInterval(d time.Duration) Option {
	return func(w *Waiter) { w.interval = d }
}

// WithTimeout sets the overall wait budget
func WithTimeout(d time.Duration) Option {
	return func(w *Waiter) { w.timeout = d }
}

// WithClock replaces the wall clock, mainly for tests
func WithClock(c clockwork.Clock) Option {
	return func(w *Waiter) { w.clock = c }
}

// WithLogger sets the logger used for poll progress
func WithLogger(l *zap.Logger) Option {
	return func(w *Waiter) { w.logger = l }
}

// WithConfig applies the interval and timeout of cfg
func WithConfig(cfg config.WaitConfig) Option {
	return func(w *Waiter) {
		w.interval = cfg.PollInterval
		w.timeout = cfg.Timeout
	}
}

// Waiter blocks until a Source has exported enough traces.
//
// Polling happens on the caller's goroutine; nothing runs in the background
// once WaitForTraces returns. The source is only read.
type Waiter struct {
	source   Source
	interval time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

// New creates a Waiter polling source
func New(source Source, opts ...Option) *Waiter {
	w := &Waiter{
		source:   source,
		interval: DefaultPollInterval,
		timeout:  DefaultTimeout,
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interval <= 0 {
		w.interval = DefaultPollInterval
	}
	if w.timeout <= 0 {
		w.timeout = DefaultTimeout
	}
	return w
}

// LastState returns the state of the most recent wait
func (w *Waiter) LastState() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Waiter) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// WaitForTraces polls until the source reports at least expectedTraceCount
// distinct traces and returns the batch of that poll.
//
// Fetch failures are logged and polling continues. Each fetch is bounded by
// the overall deadline, so a hung source cannot stretch the wait past the
// timeout. When the timeout expires a *WaitTimeoutError carrying the last
// successful batch is returned. If ctx ends first its error is returned.
func (w *Waiter) WaitForTraces(ctx context.Context, expectedTraceCount int) ([]trace.RawSpan, error) {
	if expectedTraceCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTraceCount, expectedTraceCount)
	}

	w.setState(StatePolling)
	deadline := w.clock.Now().Add(w.timeout)
	pollCtx, cancel := clockwork.WithDeadline(ctx, w.clock, deadline)
	defer cancel()
	log := w.logger.With(zap.Int("expected", expectedTraceCount))

	var (
		batch    []trace.RawSpan
		observed int
		polls    int
		lastErr  error
	)
	for {
		polls++
		spans, err := w.source.FetchSpans(pollCtx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			w.setState(StateCancelled)
			return nil, fmt.Errorf("wait for %d traces: %w", expectedTraceCount, ctxErr)
		}
		switch {
		case errors.Is(err, context.DeadlineExceeded) && !w.clock.Now().Before(deadline):
			// Cut off by the deadline; keep the last real failure
			log.Debug("fetch spans interrupted by deadline", zap.Int("poll", polls), zap.Error(err))
		case err != nil:
			lastErr = err
			log.Debug("fetch spans failed", zap.Int("poll", polls), zap.Error(err))
		default:
			batch = spans
			observed = trace.NewInspector(spans).CountTraces()
			log.Debug("polled collector",
				zap.Int("poll", polls),
				zap.Int("spans", len(spans)),
				zap.Int("traces", observed))
			if observed >= expectedTraceCount {
				w.setState(StateSatisfied)
				return spans, nil
			}
		}

		remaining := deadline.Sub(w.clock.Now())
		if remaining <= 0 {
			w.setState(StateTimedOut)
			log.Warn("timed out waiting for traces",
				zap.Int("observed", observed),
				zap.Int("polls", polls),
				zap.Duration("timeout", w.timeout),
				zap.Error(lastErr))
			return nil, &WaitTimeoutError{
				Expected: expectedTraceCount,
				Observed: observed,
				Timeout:  w.timeout,
				Polls:    polls,
				Batch:    batch,
				LastErr:  lastErr,
			}
		}

		timer := w.clock.NewTimer(min(w.interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			w.setState(StateCancelled)
			return nil, fmt.Errorf("wait for %d traces: %w", expectedTraceCount, ctx.Err())
		case <-timer.Chan():
		}
	}
}
