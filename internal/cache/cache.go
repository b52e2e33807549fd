// Package cache provides the strategy cache: an LRU with TTL expiry over
// solved strategies, request coalescing so concurrent lookups of one key run
// a single solve, and a bounded background precompute queue.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/singleflight"

	"github.com/pokeriq/gtocore/internal/solver"
)

// ErrClosed is returned for operations on a cache after Close.
var ErrClosed = errors.New("cache: closed")

// Config controls cache capacity, freshness, and precompute concurrency.
type Config struct {
	// MaxEntries bounds the number of cached strategies; the least recently
	// used entry is evicted past it. Must be positive.
	MaxEntries int

	// TTL is how long an entry stays fresh. Zero disables expiry.
	TTL time.Duration

	// PrecomputeWorkers is the number of background solve workers.
	PrecomputeWorkers int

	// PrecomputeQueue bounds the pending precompute requests; submissions
	// past it are rejected, never blocked on.
	PrecomputeQueue int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:        10000,
		TTL:               time.Hour,
		PrecomputeWorkers: 2,
		PrecomputeQueue:   256,
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.MaxEntries <= 0 {
		return errors.New("cache: max entries must be > 0")
	}
	if c.TTL < 0 {
		return errors.New("cache: ttl cannot be negative")
	}
	if c.PrecomputeWorkers < 0 {
		return errors.New("cache: precompute workers cannot be negative")
	}
	if c.PrecomputeQueue < 0 {
		return errors.New("cache: precompute queue cannot be negative")
	}
	return nil
}

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Solves      int64
	Coalesced   int64
	Size        int
	QueueDepth  int
}

// HitRate returns hits over total lookups, zero before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// SolveFunc produces a strategy for a cache key. It must honour ctx.
type SolveFunc func(ctx context.Context) (*solver.Result, error)

type entry struct {
	key      string
	result   *solver.Result
	storedAt time.Time
}

// Cache is a thread-safe LRU+TTL strategy cache. The zero value is not
// usable; construct with New.
type Cache struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock

	mu      sync.Mutex
	ll      *list.List // front = most recently used
	entries map[string]*list.Element
	closed  bool

	group singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	solves      atomic.Int64
	coalesced   atomic.Int64

	queue      chan task
	workerCtx  context.Context
	workerStop context.CancelFunc
	workers    sync.WaitGroup
}

// New constructs a cache and starts its precompute workers. A nil clock uses
// the real clock; tests inject a mock.
func New(cfg Config, logger *log.Logger, clock quartz.Clock) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &Cache{
		cfg:        cfg,
		logger:     logger.WithPrefix("cache"),
		clock:      clock,
		ll:         list.New(),
		entries:    make(map[string]*list.Element),
		queue:      make(chan task, cfg.PrecomputeQueue),
		workerCtx:  ctx,
		workerStop: stop,
	}
	for i := 0; i < cfg.PrecomputeWorkers; i++ {
		c.workers.Add(1)
		go c.worker()
	}
	return c, nil
}

// Get returns the cached strategy for key. Expired entries count as misses
// and are dropped on access.
func (c *Cache) Get(key string) (*solver.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := el.Value.(*entry)
	if c.expired(e) {
		c.removeLocked(el)
		c.expirations.Add(1)
		c.misses.Add(1)
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return e.result, true
}

// Put stores a strategy under key, evicting the least recently used entry
// when over capacity. Puts on a closed cache are dropped.
func (c *Cache) Put(key string, res *solver.Result) {
	if res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.result = res
		e.storedAt = c.clock.Now()
		c.ll.MoveToFront(el)
		return
	}

	c.entries[key] = c.ll.PushFront(&entry{key: key, result: res, storedAt: c.clock.Now()})
	for c.ll.Len() > c.cfg.MaxEntries {
		c.removeLocked(c.ll.Back())
		c.evictions.Add(1)
	}
}

// GetOrSolve returns the cached strategy for key, or runs solve to produce
// it. Concurrent calls for the same key share one solve; the result is
// cached for everybody. A closed cache still serves hits but returns
// ErrClosed rather than solving.
func (c *Cache) GetOrSolve(ctx context.Context, key string, solve SolveFunc) (*solver.Result, error) {
	if res, ok := c.Get(key); ok {
		return res, nil
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have populated the entry while we queued.
		if res, ok := c.peek(key); ok {
			return res, nil
		}
		c.solves.Add(1)
		res, err := solve(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, res)
		return res, nil
	})
	if shared {
		c.coalesced.Add(1)
	}
	if err != nil {
		return nil, err
	}
	return v.(*solver.Result), nil
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats snapshots the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	size := c.ll.Len()
	c.mu.Unlock()
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		Solves:      c.solves.Load(),
		Coalesced:   c.coalesced.Load(),
		Size:        size,
		QueueDepth:  len(c.queue),
	}
}

// Close stops the precompute workers, cancelling any in-flight solves, and
// waits for them up to the context deadline. The cache rejects writes and
// submissions afterwards; reads keep working.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.workerStop()
	close(c.queue)

	done := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// peek is Get without touching recency or the hit counters.
func (c *Cache) peek(key string) (*solver.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.expired(e) {
		return nil, false
	}
	return e.result, true
}

func (c *Cache) expired(e *entry) bool {
	return c.cfg.TTL > 0 && c.clock.Now().Sub(e.storedAt) > c.cfg.TTL
}

func (c *Cache) removeLocked(el *list.Element) {
	e := c.ll.Remove(el).(*entry)
	delete(c.entries, e.key)
}
