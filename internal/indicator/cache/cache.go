// Package cache provides the process-wide concurrent layer over the
// indicator engine. It deduplicates in-flight computations, serves a blocking
// path for the simulator and a listener-based asynchronous path for
// interactive consumers, and invalidates on context change.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-analytics/internal/indicator"
	"github.com/rxtech-lab/argo-analytics/internal/logger"
	"github.com/rxtech-lab/argo-analytics/internal/types"
	"go.uber.org/zap"
)

// Listener receives an asynchronously computed result. Listeners are invoked
// on a single delivery goroutine, never concurrently with themselves.
type Listener func(result types.IndicatorResult)

// Stats exposes the cache's observable counters.
type Stats struct {
	CachedEntries  int
	InFlight       int
	ListenerGroups int
}

// Cache wraps an indicator engine behind a concurrency-safe façade with a
// synchronous and an asynchronous access path.
//
// Dedup invariant: for any key, no two goroutines may both observe "not
// cached and not in flight" and both start a computation; N concurrent
// asynchronous requests for one key trigger exactly one computation and N
// listener notifications.
type Cache struct {
	engine *indicator.Engine
	log    *logger.Logger

	mu        sync.Mutex
	listeners map[string][]Listener
	// inflight maps a key to the token of the computation currently running
	// for it; a finished computation only delivers when its token is still
	// the registered one.
	inflight  map[string]uint64
	nextToken uint64
	gen       uint64
	closed    bool

	jobs     chan job
	delivery chan func()
	workerWG sync.WaitGroup
	// deliveryDone closes once the delivery goroutine drains and exits.
	deliveryDone chan struct{}
}

type job struct {
	key   string
	query indicator.Query
	token uint64
	gen   uint64
}

// DefaultWorkerCount is the size of the background computation pool.
const DefaultWorkerCount = 4

const jobQueueCapacity = 256

// NewCache creates a cache over the engine with the given number of
// background workers (DefaultWorkerCount when workers <= 0).
func NewCache(engine *indicator.Engine, workers int, log *logger.Logger) *Cache {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	c := &Cache{
		engine:       engine,
		log:          log,
		listeners:    make(map[string][]Listener),
		inflight:     make(map[string]uint64),
		jobs:         make(chan job, jobQueueCapacity),
		delivery:     make(chan func(), jobQueueCapacity),
		deliveryDone: make(chan struct{}),
	}

	c.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		go c.worker()
	}

	go c.deliveryLoop()

	return c
}

// GetSync returns the result for the query, computing inline on the calling
// goroutine when not cached. It never blocks on background work. Missing
// upstream data yields an Empty result and no error; only an unknown
// indicator id is an error.
func (c *Cache) GetSync(query indicator.Query) (types.IndicatorResult, error) {
	return c.engine.Series(query)
}

// RequestAsync serves the query off the caller's goroutine. When the result
// is already cached the listener is scheduled for immediate delivery and the
// call returns true. Otherwise the listener joins the key's group, a
// computation is started unless one is already in flight, and the call
// returns false.
func (c *Cache) RequestAsync(query indicator.Query, listener Listener) (bool, error) {
	if _, err := c.engine.Registry().Get(query.Type); err != nil {
		return false, fmt.Errorf("RequestAsync: %w", err)
	}

	key := query.Key()

	if result, ok := c.engine.Cached(query); ok {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return true, fmt.Errorf("RequestAsync: cache is closed")
		}

		c.delivery <- func() { listener(result) }

		return true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, fmt.Errorf("RequestAsync: cache is closed")
	}

	c.listeners[key] = append(c.listeners[key], listener)

	if _, running := c.inflight[key]; running {
		return false, nil
	}

	c.nextToken++
	token := c.nextToken
	c.inflight[key] = token

	select {
	case c.jobs <- job{key: key, query: query, token: token, gen: c.gen}:
	default:
		// queue full; drop the in-flight marker so a later request retries
		delete(c.inflight, key)
		c.log.Warn("indicator cache job queue full, dropping request", zap.String("key", key))
	}

	return false, nil
}

// worker consumes jobs until the jobs channel closes.
func (c *Cache) worker() {
	defer c.workerWG.Done()

	for j := range c.jobs {
		c.runJob(j)
	}
}

func (c *Cache) runJob(j job) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("indicator computation panicked",
				zap.String("key", j.key),
				zap.Any("panic", r),
			)
			// clear the in-flight entry so a retry is possible; nothing is
			// cached and no listener fires
			c.mu.Lock()
			if c.inflight[j.key] == j.token {
				delete(c.inflight, j.key)
			}
			c.mu.Unlock()
		}
	}()

	result, err := c.engine.Series(j.query)

	c.mu.Lock()

	if c.inflight[j.key] != j.token || c.gen != j.gen {
		// cancelled or superseded; never deliver stale results
		c.mu.Unlock()

		return
	}

	delete(c.inflight, j.key)
	group := c.listeners[j.key]
	delete(c.listeners, j.key)
	closed := c.closed
	c.mu.Unlock()

	if err != nil {
		c.log.Error("indicator computation failed",
			zap.String("key", j.key),
			zap.Error(err),
		)

		return
	}

	if closed {
		return
	}

	for _, listener := range group {
		l := listener
		c.delivery <- func() { l(result) }
	}
}

func (c *Cache) deliveryLoop() {
	defer close(c.deliveryDone)

	for fn := range c.delivery {
		fn()
	}
}

// SetContext replaces the engine's data context. In-flight computations for
// the previous context are cancelled: their results are discarded without
// populating the memo table or firing listeners.
func (c *Cache) SetContext(bars []types.Bar, tickTrades []types.TickTrade) {
	c.mu.Lock()
	c.gen++
	c.inflight = make(map[string]uint64)
	c.listeners = make(map[string][]Listener)
	c.mu.Unlock()

	c.engine.SetContext(bars, tickTrades)
}

// InvalidateAll drops all memoized entries and cancels in-flight
// computations.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.gen++
	c.inflight = make(map[string]uint64)
	c.listeners = make(map[string][]Listener)
	c.mu.Unlock()

	c.engine.InvalidateAll()
}

// Invalidate drops one memoized entry and cancels its in-flight computation
// if any.
func (c *Cache) Invalidate(query indicator.Query) {
	key := query.Key()

	c.mu.Lock()
	delete(c.inflight, key)
	delete(c.listeners, key)
	c.mu.Unlock()

	c.engine.Invalidate(query)
}

// Stats returns the cache's observable counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		CachedEntries:  c.engine.MemoSize(),
		InFlight:       len(c.inflight),
		ListenerGroups: len(c.listeners),
	}
}

// Close stops accepting requests and drains outstanding work, waiting up to
// grace for the workers to finish before giving up on them.
func (c *Cache) Close(grace time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	c.mu.Unlock()

	close(c.jobs)

	done := make(chan struct{})
	go func() {
		c.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		close(c.delivery)

		return fmt.Errorf("Close: workers did not drain within %s", grace)
	}

	close(c.delivery)
	<-c.deliveryDone

	return nil
}
