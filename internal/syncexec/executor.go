// Package syncexec implements the bounded worker-pool shape shared by
// the in-process sync task runner and (as internal/cryptoworker) the
// out-of-process encryption worker: a task channel from submitter to
// workers, a result channel from workers to a single lobby goroutine
// that resolves the promise for each submitted id.
package syncexec

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nicolagi/bajoo-sync/internal/syncerr"
)

// Task is one unit of work submitted to the executor: id is unique
// per submission, and Run performs the blocking work.
type Task struct {
	ID  uint64
	Run func(ctx context.Context) (interface{}, error)
}

type result struct {
	id    uint64
	value interface{}
	err   error
}

// Executor is a bounded pool of N workers pulling from a single task
// channel, with a lobby goroutine resolving the channel-based promise
// for each submitted id exactly once.
type Executor struct {
	tasks   chan Task
	results chan result

	mu        sync.Mutex
	promises  map[uint64]chan result
	nextID    uint64
	stopped   int32
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	groupCtx  context.Context
}

// New starts an Executor with workers workers, each pulling from a
// shared task channel of the given capacity.
func New(workers, queueCapacity int) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	e := &Executor{
		tasks:    make(chan Task, queueCapacity),
		results:  make(chan result, queueCapacity),
		promises: make(map[uint64]chan result),
		ctx:      ctx,
		cancel:   cancel,
		group:    group,
		groupCtx: groupCtx,
	}
	for i := 0; i < workers; i++ {
		e.group.Go(e.workerLoop)
	}
	go e.lobby()
	return e
}

func (e *Executor) workerLoop() error {
	for {
		select {
		case <-e.groupCtx.Done():
			return nil
		case task, ok := <-e.tasks:
			if !ok {
				return nil
			}
			value, err := task.Run(e.groupCtx)
			select {
			case e.results <- result{id: task.ID, value: value, err: err}:
			case <-e.groupCtx.Done():
				return nil
			}
		}
	}
}

// lobby is the single reactor draining the result channel and
// resolving the matching promise. On a transport error (the channel
// closing mid-flight, signalled by the context being cancelled) it
// rejects every still-outstanding promise with ServiceUnavailable.
func (e *Executor) lobby() {
	for {
		select {
		case r, ok := <-e.results:
			if !ok {
				e.rejectAll(syncerr.ErrServiceUnavailable)
				return
			}
			e.resolve(r)
		case <-e.ctx.Done():
			e.rejectAll(syncerr.ErrServiceUnavailable)
			return
		}
	}
}

func (e *Executor) resolve(r result) {
	e.mu.Lock()
	ch, ok := e.promises[r.id]
	if ok {
		delete(e.promises, r.id)
	}
	e.mu.Unlock()
	if ok {
		ch <- r
	}
}

func (e *Executor) rejectAll(err error) {
	e.mu.Lock()
	pending := e.promises
	e.promises = make(map[uint64]chan result)
	e.mu.Unlock()
	for id, ch := range pending {
		ch <- result{id: id, err: err}
	}
}

// Submit enqueues run for execution and blocks until it resolves,
// rejects, or ctx is cancelled. Submitting after Stop returns
// ServiceStopping immediately without enqueuing anything.
func (e *Executor) Submit(ctx context.Context, run func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if atomic.LoadInt32(&e.stopped) != 0 {
		return nil, syncerr.ErrServiceStopping
	}
	id := atomic.AddUint64(&e.nextID, 1)
	ch := make(chan result, 1)
	e.mu.Lock()
	e.promises[id] = ch
	e.mu.Unlock()

	select {
	case e.tasks <- Task{ID: id, Run: run}:
	case <-ctx.Done():
		e.mu.Lock()
		delete(e.promises, id)
		e.mu.Unlock()
		return nil, ctx.Err()
	case <-e.ctx.Done():
		return nil, syncerr.ErrServiceUnavailable
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop idempotently shuts the executor down: no more tasks are
// accepted, workers finish their in-flight task then exit, and the
// lobby rejects anything left outstanding.
func (e *Executor) Stop() {
	if !atomic.CompareAndSwapInt32(&e.stopped, 0, 1) {
		return
	}
	e.cancel()
	_ = e.group.Wait()
	close(e.results)
}
