package highlight

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// DefaultDebounce is the pause after the last edit before background
// highlighting is requested.
const DefaultDebounce = 50 * time.Millisecond

// Worker tokenizes jobs on a background goroutine. It only ever sees job
// snapshots; results are handed back on Results for the owning goroutine to
// Apply.
type Worker struct {
	jobs    chan Job
	results chan Result
	log     pslog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	timer    *time.Timer
	debounce time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithDebounce sets the delay used by Schedule.
func WithDebounce(d time.Duration) WorkerOption {
	return func(w *Worker) { w.debounce = d }
}

// WithLogger sets the worker's logger.
func WithLogger(logger pslog.Logger) WorkerOption {
	return func(w *Worker) { w.log = logger }
}

// NewWorker starts a worker that runs until ctx is done or Close is called.
func NewWorker(ctx context.Context, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		jobs:     make(chan Job, 16),
		results:  make(chan Result, 16),
		cancel:   cancel,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = pslog.Ctx(ctx)
	}
	w.wg.Add(1)
	go w.loop(ctx)
	return w
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.results)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			start := time.Now()
			res := Run(job)
			w.log.Trace("highlight job done", "owner", job.Owner, "start", job.Start, "lines", len(job.Lines), "elapsed", time.Since(start))
			select {
			case w.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit queues job without blocking. It reports false when the queue is
// full; the lines stay dirty and can be submitted again later.
func (w *Worker) Submit(job Job) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Debug("highlight queue full", "owner", job.Owner, "start", job.Start)
		return false
	}
}

// Results delivers finished jobs. It is closed once the worker stops.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Schedule calls fn after the debounce delay, restarting the delay if
// Schedule is called again first. fn runs on a timer goroutine and should
// only notify the owning goroutine.
func (w *Worker) Schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, fn)
}

// Close stops the worker and waits for it to exit.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.cancel()
	w.wg.Wait()
}
