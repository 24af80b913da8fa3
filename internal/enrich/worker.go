package enrich

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when the job queue has no room. Callers treat it
// as backpressure, not failure.
var ErrQueueFull = eris.New("enrich: job queue full")

// ErrPoolClosed is returned for submissions after Close has begun, which can
// happen while in-flight handlers finish during shutdown.
var ErrPoolClosed = eris.New("enrich: pool closed")

// JobKind selects what a queued job enriches.
type JobKind string

const (
	JobPrefetch JobKind = "prefetch"
	JobProperty JobKind = "property"
)

// Job is one queued enrichment request.
type Job struct {
	ID         uuid.UUID
	Kind       JobKind
	Lat        float64
	Lng        float64
	PropertyID uuid.UUID
}

// Pool runs enrichment jobs on a fixed set of workers behind a bounded
// queue. Job failures are logged and swallowed; the submitters already got
// their 202.
type Pool struct {
	orch    *Orchestrator
	jobs    chan Job
	workers int

	wg sync.WaitGroup

	// mu serializes submissions against Close so no send can race the
	// channel close.
	mu     sync.Mutex
	closed bool
}

func NewPool(orch *Orchestrator, workers, queueCapacity int) *Pool {
	if workers <= 0 {
		workers = 3
	}
	if queueCapacity <= 0 {
		queueCapacity = 100
	}
	return &Pool{
		orch:    orch,
		jobs:    make(chan Job, queueCapacity),
		workers: workers,
	}
}

// Start launches the workers. They drain the queue until Close is called or
// the context is canceled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					p.run(ctx, job)
				}
			}
		}()
	}
}

// SubmitPrefetch queues a coordinate prefetch without blocking.
func (p *Pool) SubmitPrefetch(lat, lng float64) (uuid.UUID, error) {
	return p.submit(Job{ID: uuid.New(), Kind: JobPrefetch, Lat: lat, Lng: lng})
}

// SubmitProperty queues property enrichment without blocking.
func (p *Pool) SubmitProperty(propertyID uuid.UUID) (uuid.UUID, error) {
	return p.submit(Job{ID: uuid.New(), Kind: JobProperty, PropertyID: propertyID})
}

func (p *Pool) submit(job Job) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return uuid.Nil, ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return job.ID, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued work to finish. Safe to
// call more than once; later submissions fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, job Job) {
	var err error
	switch job.Kind {
	case JobPrefetch:
		err = p.orch.FetchAndCache(ctx, job.Lat, job.Lng)
	case JobProperty:
		err = p.orch.EnrichProperty(ctx, job.PropertyID)
	default:
		err = eris.Errorf("enrich: unknown job kind %q", job.Kind)
	}
	if err != nil {
		zap.L().Warn("enrichment job failed",
			zap.String("job", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
	}
}
