package storage

import (
	"sync"
	"sync/atomic"

	"datahub-exporter/utils"
)

// Item is one fetched document waiting to be written.
type Item struct {
	PropertyID int
	Token      int
	Body       string
}

// Queue decouples the highly parallel document fetchers from serialized
// disk writes. Capacity is fixed: a producer calling Put when the queue is
// full blocks until a writer frees space, which keeps memory bounded when
// fetch concurrency outruns write throughput.
//
// Shutdown is close-then-drain: Close stops accepting items, the writer
// goroutines exit once the channel is exhausted, and Wait is the barrier
// the orchestrator sits on before starting aggregation.
type Queue struct {
	items   chan Item
	wg      sync.WaitGroup
	saver   DocumentSaver
	logger  *utils.Logger
	written int64
}

// NewQueue starts the writer pool. workers and capacity must be positive.
func NewQueue(saver DocumentSaver, workers, capacity int, logger *utils.Logger) *Queue {
	q := &Queue{
		items:  make(chan Item, capacity),
		saver:  saver,
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.writer()
	}
	return q
}

// Put enqueues one document, blocking while the queue is full.
func (q *Queue) Put(it Item) {
	q.items <- it
}

// Close stops the queue from accepting new items. Producers must not call
// Put after Close.
func (q *Queue) Close() {
	close(q.items)
}

// Wait blocks until every enqueued item has been handled and all writers
// have exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Written returns the number of documents successfully written so far.
func (q *Queue) Written() int64 {
	return atomic.LoadInt64(&q.written)
}

func (q *Queue) writer() {
	defer q.wg.Done()

	for it := range q.items {
		if err := q.saver.SaveDocument(it.PropertyID, it.Token, it.Body); err != nil {
			// Best-effort: a failed write is dropped, the worker lives on.
			q.logger.Warn("[queue] write %d/%d failed: %v", it.PropertyID, it.Token, err)
			continue
		}
		atomic.AddInt64(&q.written, 1)
	}
}
