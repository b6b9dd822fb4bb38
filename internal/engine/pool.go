package engine

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrShuttingDown indicates the pool no longer accepts requests.
	ErrShuttingDown = errors.New("engine shutting down")
	// ErrQueueFull indicates the submission queue is at capacity.
	ErrQueueFull = errors.New("request queue full")
	// ErrUnknownRequest indicates an id with no pending task.
	ErrUnknownRequest = errors.New("unknown request id")
)

const queueCapacity = 1024

type taskState int32

const (
	taskQueued taskState = iota
	taskRunning
	taskDone
	taskCancelled
)

// Handle resolves to the result of an async submission.
type Handle struct {
	id     string
	done   chan struct{}
	result Result
	state  atomic.Int32
}

// ID is the opaque request id usable with Cancel and IsComplete.
func (h *Handle) ID() string { return h.id }

// Done is closed when the result is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks for and returns the result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

type task struct {
	handle   *Handle
	req      Request
	callback func(Result)
}

func (t *task) fulfill(result Result) {
	t.handle.result = result
	close(t.handle.done)
	if t.callback != nil {
		t.callback(result)
	}
}

// workerPool is a fixed set of goroutines draining a FIFO queue. Tasks
// cancelled before dequeue resolve with StatusCancelled and never run;
// running tasks always complete.
type workerPool struct {
	run      func(Request) Result
	tasks    chan *task
	log      *slog.Logger
	wg       sync.WaitGroup
	mu       sync.Mutex
	pending  map[string]*task
	stopping bool
	active   atomic.Int32
}

func newWorkerPool(workers int, run func(Request) Result, log *slog.Logger) *workerPool {
	p := &workerPool{
		run:     run,
		tasks:   make(chan *task, queueCapacity),
		log:     log.With(slog.String("component", "worker-pool")),
		pending: make(map[string]*task),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		if !t.handle.state.CompareAndSwap(int32(taskQueued), int32(taskRunning)) {
			continue // cancelled before dequeue
		}
		p.active.Add(1)
		result := p.run(t.req)
		p.active.Add(-1)

		t.handle.state.Store(int32(taskDone))
		p.forget(t.handle.id)
		t.fulfill(result)
	}
}

// submit enqueues a request and returns its handle.
func (p *workerPool) submit(req Request, callback func(Result)) (*Handle, error) {
	h := &Handle{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	t := &task{handle: h, req: req, callback: callback}

	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return nil, ErrShuttingDown
	}
	select {
	case p.tasks <- t:
		p.pending[h.id] = t
		p.mu.Unlock()
		return h, nil
	default:
		p.mu.Unlock()
		return nil, ErrQueueFull
	}
}

// cancel resolves a still-queued task with StatusCancelled. Running and
// finished tasks are left alone.
func (p *workerPool) cancel(id string) error {
	p.mu.Lock()
	t, ok := p.pending[id]
	p.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}
	if !t.handle.state.CompareAndSwap(int32(taskQueued), int32(taskCancelled)) {
		return nil // already running or done; completion wins
	}
	p.forget(id)
	t.fulfill(failure(StatusCancelled, "request cancelled"))
	return nil
}

// isComplete reports whether the id has resolved (or was never known).
func (p *workerPool) isComplete(id string) bool {
	p.mu.Lock()
	t, ok := p.pending[id]
	p.mu.Unlock()
	if !ok {
		return true
	}
	state := taskState(t.handle.state.Load())
	return state == taskDone || state == taskCancelled
}

func (p *workerPool) forget(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *workerPool) queueDepth() int { return len(p.tasks) }

func (p *workerPool) activeCount() int { return int(p.active.Load()) }

// shutdown stops intake, cancels everything not yet started, and joins
// the workers. In-flight requests run to completion.
func (p *workerPool) shutdown() {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	remaining := make([]*task, 0, len(p.pending))
	for _, t := range p.pending {
		remaining = append(remaining, t)
	}
	close(p.tasks)
	p.mu.Unlock()

	for _, t := range remaining {
		if t.handle.state.CompareAndSwap(int32(taskQueued), int32(taskCancelled)) {
			p.forget(t.handle.id)
			t.fulfill(failure(StatusCancelled, "engine shutting down"))
		}
	}

	p.wg.Wait()
}

// SynthesizeAsync enqueues the request and returns a handle.
func (e *Engine) SynthesizeAsync(req Request) (*Handle, error) {
	if !e.initialized.Load() {
		return nil, ErrShuttingDown
	}
	return e.pool.submit(req, nil)
}

// Submit enqueues the request with an optional completion callback and
// returns the opaque request id.
func (e *Engine) Submit(req Request, callback func(Result)) (string, error) {
	if !e.initialized.Load() {
		return "", ErrShuttingDown
	}
	h, err := e.pool.submit(req, callback)
	if err != nil {
		return "", err
	}
	return h.ID(), nil
}

// Cancel resolves a queued request with StatusCancelled; requests
// already executing run to completion.
func (e *Engine) Cancel(id string) error {
	if e.pool == nil {
		return ErrUnknownRequest
	}
	return e.pool.cancel(id)
}

// IsComplete reports whether the request has resolved.
func (e *Engine) IsComplete(id string) bool {
	if e.pool == nil {
		return true
	}
	return e.pool.isComplete(id)
}
