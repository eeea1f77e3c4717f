// Package jobqueue runs background jobs on a fixed pool of workers fed by a
// bounded channel.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/patric-chuzhbe/filesmanager/internal/logger"
)

// ErrQueueClosed is returned by Enqueue once Stop has been called.
var ErrQueueClosed = errors.New("job queue is closed")

// Handler processes one job. A returned error marks the job failed.
type Handler[T any] func(ctx context.Context, job T) error

// Queue delivers every enqueued job to exactly one worker.
type Queue[T any] struct {
	name         string
	handler      Handler[T]
	workers      int
	jobs         chan T
	stop         chan struct{}
	errorChannel chan error

	mu      sync.RWMutex
	closed  bool
	started bool
	group   *errgroup.Group
}

func New[T any](name string, handler Handler[T], workers, capacity int) *Queue[T] {
	if workers < 1 {
		workers = 1
	}
	if capacity < 0 {
		capacity = 0
	}

	return &Queue[T]{
		name:         name,
		handler:      handler,
		workers:      workers,
		jobs:         make(chan T, capacity),
		stop:         make(chan struct{}),
		errorChannel: make(chan error, capacity+workers),
	}
}

// ListenErrors calls callback with every job failure.
func (q *Queue[T]) ListenErrors(callback func(error)) {
	go func() {
		for err := range q.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the workers. Handlers receive ctx.
func (q *Queue[T]) Run(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true
	q.group = &errgroup.Group{}

	for i := 0; i < q.workers; i++ {
		q.group.Go(func() error {
			q.work(ctx)
			return nil
		})
	}

	logger.Log.Infow("job queue started", "queue", q.name, "workers", q.workers, "capacity", cap(q.jobs))
}

// Enqueue buffers a job, blocking while the buffer is full until ctx is done.
func (q *Queue[T]) Enqueue(ctx context.Context, job T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("in internal/jobqueue/jobqueue.go/Enqueue(): %s queue: %w", q.name, ctx.Err())
	}
}

// Stop refuses new jobs, lets the workers finish what is already buffered
// and waits for them to exit.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.stop)
	group := q.group
	q.mu.Unlock()

	if group != nil {
		_ = group.Wait()
	}
	close(q.errorChannel)

	logger.Log.Infow("job queue stopped", "queue", q.name)
}

func (q *Queue[T]) work(ctx context.Context) {
	for {
		select {
		case job := <-q.jobs:
			q.process(ctx, job)
		case <-q.stop:
			for {
				select {
				case job := <-q.jobs:
					q.process(ctx, job)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue[T]) process(ctx context.Context, job T) {
	if err := q.safeHandle(ctx, job); err != nil {
		select {
		case q.errorChannel <- err:
		default:
			logger.Log.Errorw("job failed", "queue", q.name, "error", err)
		}
	}
}

func (q *Queue[T]) safeHandle(ctx context.Context, job T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("in internal/jobqueue/jobqueue.go/safeHandle(): %s queue: panic while handling job: %v", q.name, r)
		}
	}()

	return q.handler(ctx, job)
}
