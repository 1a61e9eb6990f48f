package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrQueueClosed is returned for work submitted after Close.
var ErrQueueClosed = errors.New("answer queue closed")

// AnswerQueue runs submissions one at a time per question, in the order they
// were enqueued. Different questions proceed concurrently.
type AnswerQueue struct {
	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
	log    zerolog.Logger
}

type lane struct {
	pending []*task
}

type task struct {
	ctx  context.Context
	run  func(context.Context) error
	done chan error
}

// NewAnswerQueue creates a new AnswerQueue.
func NewAnswerQueue(log zerolog.Logger) *AnswerQueue {
	return &AnswerQueue{
		lanes: make(map[int64]*lane),
		log:   log.With().Str("component", "answer_queue").Logger(),
	}
}

// Run enqueues job on the lane of key and waits for its result. The job
// receives ctx; if ctx ends while waiting, Run returns early but the job
// still runs in order.
func (q *AnswerQueue) Run(ctx context.Context, key int64, job func(context.Context) error) error {
	t := &task{ctx: ctx, run: job, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	l, exists := q.lanes[key]
	if !exists {
		l = &lane{}
		q.lanes[key] = l
	}
	l.pending = append(l.pending, t)
	depth := len(l.pending)
	if !exists {
		q.wg.Add(1)
		go q.drain(key, l)
	}
	q.mu.Unlock()

	if depth > 1 {
		q.log.Debug().Int64("key", key).Int("depth", depth).Msg("Queued behind in-flight submission")
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes a lane until it is empty, then retires it.
func (q *AnswerQueue) drain(key int64, l *lane) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(l.pending) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		t := l.pending[0]
		l.pending = l.pending[1:]
		q.mu.Unlock()

		t.done <- t.run(t.ctx)
	}
}

// Close rejects new work and waits for queued work to finish.
func (q *AnswerQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}
