package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pool is the job intake queue plus the workers that drain it. Intake is
// unbounded: submission must always succeed immediately, the brake on
// concurrency is the fixed worker count, not admission. FIFO order is
// the scheduling contract.
type Pool struct {
	run     func(ctx context.Context, jobID string)
	workers int
	log     zerolog.Logger

	mu      sync.Mutex
	pending []string

	// wake holds at most one token; a worker waiting in next() consumes
	// it and then drains the queue until empty.
	wake chan struct{}
	wg   sync.WaitGroup

	// jobCtx detaches running jobs from the intake context so shutdown
	// lets them finish. Kill cancels it once the drain grace is spent.
	jobCtx    context.Context
	jobCancel context.CancelFunc
}

func newPool(workers int, run func(ctx context.Context, jobID string), log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		run:     run,
		workers: workers,
		log:     log,
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the worker goroutines. Canceling ctx stops intake:
// workers finish the job in hand, drain what is already queued and
// exit. The jobs themselves run on a detached context so an engine run
// is not killed mid-file by shutdown; Kill ends them explicitly.
func (p *Pool) Start(ctx context.Context) {
	p.jobCtx, p.jobCancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

// Submit queues a job id. Never blocks.
func (p *Pool) Submit(jobID string) {
	p.mu.Lock()
	p.pending = append(p.pending, jobID)
	n := len(p.pending)
	p.mu.Unlock()
	queueDepth.Set(float64(n))
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// QueueLen reports jobs accepted but not yet picked up.
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Kill cancels the context running jobs were handed, aborting their
// engine subprocesses. No-op before Start.
func (p *Pool) Kill() {
	if p.jobCancel != nil {
		p.jobCancel()
	}
}

// Drain waits until every worker goroutine has exited, up to timeout.
// Returns false when the timeout elapsed with work still running.
func (p *Pool) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Pool) loop(ctx context.Context, worker int) {
	defer p.wg.Done()
	log := p.log.With().Int("worker", worker).Logger()
	log.Debug().Msg("worker started")
	for {
		jobID, ok := p.next(ctx)
		if !ok {
			log.Debug().Msg("worker stopped")
			return
		}
		p.run(p.jobCtx, jobID)
	}
}

// next pops the oldest pending job, blocking until one arrives or ctx is
// canceled. The queue check comes first, so jobs already queued at
// cancellation are still drained; workers exit once it is empty.
func (p *Pool) next(ctx context.Context) (string, bool) {
	for {
		p.mu.Lock()
		if len(p.pending) > 0 {
			jobID := p.pending[0]
			p.pending = p.pending[1:]
			n := len(p.pending)
			p.mu.Unlock()
			queueDepth.Set(float64(n))
			if n > 0 {
				// forward the token so an idle sibling picks up the rest
				select {
				case p.wake <- struct{}{}:
				default:
				}
			}
			return jobID, true
		}
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", false
		case <-p.wake:
		}
	}
}
