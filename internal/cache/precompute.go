package cache

import (
	"context"
	"errors"
)

type task struct {
	key   string
	solve SolveFunc
}

// Precompute queues a background solve for key. It returns false without
// blocking when the key is already cached, the queue is full, or the cache
// is closed. The solve shares the singleflight group with GetOrSolve, so a
// foreground request for the same key never duplicates the work.
func (c *Cache) Precompute(key string, solve SolveFunc) bool {
	if _, ok := c.peek(key); ok {
		return false
	}

	// The closed check and the send must happen under one lock acquisition:
	// Close sets closed under the mutex before closing the queue, so a send
	// that observed closed == false is ordered before close(c.queue).
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.queue <- task{key: key, solve: solve}:
		return true
	default:
		c.logger.Debug("precompute queue full, dropping request", "key", key)
		return false
	}
}

// worker drains the precompute queue until Close. In-flight solves run under
// the worker context and stop early when the cache shuts down; a partial
// result from a cancelled solve is still cached.
func (c *Cache) worker() {
	defer c.workers.Done()
	for t := range c.queue {
		if _, ok := c.peek(t.key); ok {
			continue
		}
		select {
		case <-c.workerCtx.Done():
			return
		default:
		}

		key, solve := t.key, t.solve
		_, err, _ := c.group.Do(key, func() (interface{}, error) {
			if res, ok := c.peek(key); ok {
				return res, nil
			}
			c.solves.Add(1)
			res, err := solve(c.workerCtx)
			if err != nil {
				return nil, err
			}
			c.Put(key, res)
			return res, nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("precompute solve failed", "key", key, "error", err)
		}
	}
}
