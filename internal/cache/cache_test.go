package cache

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/gtocore/internal/solver"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testResult(iterations int) *solver.Result {
	return &solver.Result{
		Iterations:     iterations,
		Exploitability: 0.1,
		Strategies:     map[string]solver.Strategy{},
	}
}

func newTestCache(t *testing.T, cfg Config, clock quartz.Clock) *Cache {
	t.Helper()
	c, err := New(cfg, testLogger(), clock)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func TestGetPutRoundtrip(t *testing.T) {
	c := newTestCache(t, DefaultConfig(), nil)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	res := testResult(100)
	c.Put("k", res)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, res, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestLRUEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEntries = 2
	c := newTestCache(t, cfg, nil)

	c.Put("a", testResult(1))
	c.Put("b", testResult(2))

	// Touch "a" so "b" is the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", testResult(3))

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestTTLExpiry(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := DefaultConfig()
	cfg.TTL = time.Hour
	c := newTestCache(t, cfg, mock)

	c.Put("k", testResult(1))
	_, ok := c.Get("k")
	require.True(t, ok)

	mock.Advance(2 * time.Hour)

	_, ok = c.Get("k")
	assert.False(t, ok, "entry past TTL expires")
	assert.Equal(t, int64(1), c.Stats().Expirations)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrSolveCoalesces(t *testing.T) {
	c := newTestCache(t, DefaultConfig(), nil)

	gate := make(chan struct{})
	var solveCalls atomic.Int32
	solve := func(ctx context.Context) (*solver.Result, error) {
		solveCalls.Add(1)
		<-gate
		return testResult(42), nil
	}

	const callers = 10
	results := make([]*solver.Result, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrSolve(context.Background(), "k", solve)
		}(i)
	}

	// Give callers time to pile up behind the in-flight solve, then
	// release it. Late arrivals hit the cache instead, so either way the
	// solve runs exactly once.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), solveCalls.Load())
	for i, res := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, res.Iterations)
	}
}

func TestGetOrSolvePropagatesError(t *testing.T) {
	c := newTestCache(t, DefaultConfig(), nil)

	wantErr := fmt.Errorf("solve exploded")
	_, err := c.GetOrSolve(context.Background(), "k", func(ctx context.Context) (*solver.Result, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok := c.Get("k")
	assert.False(t, ok, "failed solves are not cached")
}

func TestPrecompute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrecomputeWorkers = 1
	c := newTestCache(t, cfg, nil)

	accepted := c.Precompute("k", func(ctx context.Context) (*solver.Result, error) {
		return testResult(7), nil
	})
	require.True(t, accepted)

	require.Eventually(t, func() bool {
		_, ok := c.peek("k")
		return ok
	}, time.Second, 5*time.Millisecond)

	res, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, res.Iterations)

	// Already cached: the submission is rejected, not re-queued.
	assert.False(t, c.Precompute("k", func(ctx context.Context) (*solver.Result, error) {
		return testResult(8), nil
	}))
}

func TestPrecomputeQueueBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrecomputeWorkers = 0 // nothing drains the queue
	cfg.PrecomputeQueue = 2
	c := newTestCache(t, cfg, nil)

	solve := func(ctx context.Context) (*solver.Result, error) {
		return testResult(1), nil
	}
	assert.True(t, c.Precompute("a", solve))
	assert.True(t, c.Precompute("b", solve))
	assert.False(t, c.Precompute("c", solve), "full queue rejects instead of blocking")
	assert.Equal(t, 2, c.Stats().QueueDepth)
}

func TestCloseRejectsWork(t *testing.T) {
	c, err := New(DefaultConfig(), testLogger(), nil)
	require.NoError(t, err)

	c.Put("k", testResult(1))
	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()), "double close is a no-op")

	assert.False(t, c.Precompute("x", func(ctx context.Context) (*solver.Result, error) {
		return testResult(2), nil
	}))
	c.Put("y", testResult(3))
	_, ok := c.Get("y")
	assert.False(t, ok, "writes after close are dropped")

	_, ok = c.Get("k")
	assert.True(t, ok, "reads keep working after close")

	_, err = c.GetOrSolve(context.Background(), "z", func(ctx context.Context) (*solver.Result, error) {
		return testResult(4), nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPrecomputeRacingCloseDoesNotPanic(t *testing.T) {
	// Submissions racing Close must either enqueue before the queue closes
	// or be rejected; a send on the closed queue would crash the process.
	cfg := DefaultConfig()
	cfg.PrecomputeWorkers = 1
	cfg.PrecomputeQueue = 4
	c, err := New(cfg, testLogger(), nil)
	require.NoError(t, err)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				c.Precompute(fmt.Sprintf("k%d-%d", g, i), func(ctx context.Context) (*solver.Result, error) {
					return testResult(1), nil
				})
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		assert.NoError(t, c.Close(context.Background()))
	}()

	close(start)
	wg.Wait()

	assert.False(t, c.Precompute("late", func(ctx context.Context) (*solver.Result, error) {
		return testResult(1), nil
	}))
}

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")
	store := &FileStore{Path: path}

	// Missing file loads as empty.
	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	c := newTestCache(t, DefaultConfig(), nil)
	c.Put("a", testResult(10))
	c.Put("b", testResult(20))

	// Unmeasured exploitability cannot be serialised and is skipped.
	unmeasured := testResult(5)
	unmeasured.Exploitability = math.NaN()
	c.Put("nan", unmeasured)

	require.NoError(t, c.SaveTo(store))

	fresh := newTestCache(t, DefaultConfig(), nil)
	require.NoError(t, fresh.LoadFrom(store))

	res, ok := fresh.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, res.Iterations)
	_, ok = fresh.Get("b")
	assert.True(t, ok)
	_, ok = fresh.Get("nan")
	assert.False(t, ok)
}

func TestLoadFromSkipsStaleEntries(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := DefaultConfig()
	cfg.TTL = time.Hour
	c := newTestCache(t, cfg, mock)

	store := &staticStore{entries: []PersistedEntry{
		{Key: "fresh", Result: testResult(1), StoredAt: mock.Now().Add(-time.Minute)},
		{Key: "stale", Result: testResult(2), StoredAt: mock.Now().Add(-2 * time.Hour)},
		{Key: "", Result: testResult(3), StoredAt: mock.Now()},
	}}
	require.NoError(t, c.LoadFrom(store))

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("stale")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

type staticStore struct {
	entries []PersistedEntry
	saved   []PersistedEntry
}

func (s *staticStore) Load() ([]PersistedEntry, error) { return s.entries, nil }
func (s *staticStore) Save(entries []PersistedEntry) error {
	s.saved = entries
	return nil
}
