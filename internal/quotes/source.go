package quotes

import (
	"context"
	"errors"
	"sync"
	"time"

	logx "quotebot/pkg/logx"
)

// ErrNoQuotes is returned by Next when the store holds zero quotes.
// It is never cached: the very next call queries the store again.
var ErrNoQuotes = errors.New("no quotes available")

// Sampler is the slice of the quote store the source depends on.
type Sampler interface {
	// SampleRandom returns up to n uniformly random quotes, sampled without
	// replacement within the call. Fewer than n stored quotes is not an error.
	SampleRandom(ctx context.Context, n int) ([]Quote, error)
}

// Config configures the buffered random source.
type Config struct {
	// Capacity is the batch size requested per refill (the buffer size N).
	Capacity int
	// RefillTimeout bounds the store round-trip inside a refill.
	// 0 disables the extra deadline (the caller context still applies).
	RefillTimeout time.Duration
}

const DefaultCapacity = 15

// Source serves random quotes one at a time from an in-memory pool,
// refilling the pool from the store when it runs empty.
//
// Batching amortizes the store query over Capacity served quotes. The pool is
// replaced wholesale on refill; quotes written to the store during the
// lifetime of a batch become visible at the next refill.
//
// All access is serialized through one mutex, so the check-empty -> refill ->
// pop sequence is indivisible: concurrent callers can never trigger duplicate
// refills or observe a partially installed batch.
type Source struct {
	store Sampler
	log   logx.Logger

	mu            sync.Mutex
	pool          []Quote
	capacity      int
	refillTimeout time.Duration
}

func NewSource(store Sampler, cfg Config, log logx.Logger) *Source {
	if log.IsZero() {
		log = logx.Nop()
	}
	n := cfg.Capacity
	if n <= 0 {
		n = DefaultCapacity
	}
	return &Source{
		store:         store,
		log:           log,
		capacity:      n,
		refillTimeout: cfg.RefillTimeout,
	}
}

// Next removes and returns one quote from the pool, refilling from the store
// first if the pool is empty.
//
// Store errors propagate unchanged and leave the pool empty; a failed refill
// never installs a partial batch. An empty store yields ErrNoQuotes.
func (s *Source) Next(ctx context.Context) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pool) == 0 {
		if err := s.refillLocked(ctx); err != nil {
			return Quote{}, err
		}
	}

	last := len(s.pool) - 1
	q := s.pool[last]
	s.pool[last] = Quote{} // release the backing text
	s.pool = s.pool[:last]

	s.log.Debug("quote served", logx.Int64("id", q.ID), logx.Int("pool_left", len(s.pool)))
	return q, nil
}

func (s *Source) refillLocked(ctx context.Context) error {
	if s.refillTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.refillTimeout)
		defer cancel()
	}

	s.log.Debug("refilling pool from store", logx.Int("capacity", s.capacity))
	batch, err := s.store.SampleRandom(ctx, s.capacity)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return ErrNoQuotes
	}
	s.pool = batch
	s.log.Info("pool refilled", logx.Int("quotes", len(batch)))
	return nil
}

// SetCapacity changes the batch size requested per refill.
// It takes effect at the next refill; the current pool is left alone.
func (s *Source) SetCapacity(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.capacity = n
	s.mu.Unlock()
}

// Remaining reports how many quotes are left in the pool.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}
