package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	logx "quotebot/pkg/logx"
)

// Supervisor manages goroutines tied to a shared context.
// - Named goroutines (for logging/debug)
// - Panic recovery
// - Optional cancel-on-first-error
// - Graceful stop with timeout-aware waiting
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         logx.Logger
	cancelOnErr bool
	errOnce     sync.Once
	firstErr    atomic.Value // stores error
	wg          sync.WaitGroup

	active int64
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError cancels the supervisor context on the first non-nil
// goroutine error (and on panics).
func WithCancelOnError(enabled bool) Option {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{ctx: ctx, cancel: cancel}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

func (s *Supervisor) Cancel() { s.cancel() }

// Err returns the first error observed (if any).
func (s *Supervisor) Err() error {
	v := s.firstErr.Load()
	if v == nil {
		return nil
	}
	err, _ := v.(error)
	return err
}

// Active returns the number of goroutines currently running.
// Operational signal only, not a synchronization primitive.
func (s *Supervisor) Active() int64 { return atomic.LoadInt64(&s.active) }

func (s *Supervisor) noteErr(name string, err error) {
	if err == nil {
		return
	}
	s.errOnce.Do(func() { s.firstErr.Store(err) })
	if !s.log.IsZero() {
		s.log.Error("goroutine failed", logx.String("name", name), logx.Err(err))
	}
	if s.cancelOnErr {
		s.cancel()
	}
}

// Go runs fn under the supervisor context with panic recovery.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	atomic.AddInt64(&s.active, 1)
	go func() {
		defer s.wg.Done()
		defer atomic.AddInt64(&s.active, -1)
		defer func() {
			if r := recover(); r != nil {
				s.noteErr(name, fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
			}
		}()
		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.noteErr(name, err)
		}
	}()
}

// Go0 runs a goroutine that cannot fail (no error return).
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// GoRestart0 keeps fn running until the context is canceled, restarting it
// with a fixed backoff if it returns early. Long-running loops that can exit
// unexpectedly (e.g. a transport poll loop) run under this.
func (s *Supervisor) GoRestart0(name string, backoff time.Duration, fn func(ctx context.Context)) {
	if backoff <= 0 {
		backoff = time.Second
	}
	s.Go0(name, func(ctx context.Context) {
		for {
			runRecovered(s, name, ctx, fn)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if !s.log.IsZero() {
				s.log.Warn("goroutine restarted", logx.String("name", name))
			}
		}
	})
}

func runRecovered(s *Supervisor, name string, ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.noteErr(name, fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()
	fn(ctx)
}

// Wait blocks until all goroutines exit or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
