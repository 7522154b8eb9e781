// Package worker processes immunisation records concurrently. A Pool fans
// jobs out to a bounded set of goroutines, each running the full
// decorate-and-validate sequence, and emits one result per job.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/engine"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/logger"
)

// ErrEmptyJob is returned for a job carrying neither a row nor a resource.
var ErrEmptyJob = errors.New("job carries neither a row nor a resource")

// Pool manages a bounded set of worker goroutines validating records.
type Pool struct {
	workers    int
	jobsChan   chan Job
	resultChan chan *JobResult
	validator  *engine.ImmunizationValidator
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool

	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool starts a pool of workers backed by the given validator.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewPool(validator *engine.ImmunizationValidator, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		workers:    workers,
		jobsChan:   make(chan Job, workers*2),
		resultChan: make(chan *JobResult, workers*2),
		validator:  validator,
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	logger.Debug().Int("workers", workers).Msg("worker pool started")
	return p
}

// Submit queues a job, blocking while the queue is full. A job without an ID
// gets one assigned. Returns false once the pool is closed.
func (p *Pool) Submit(job Job) bool {
	if p.closed.Load() {
		return false
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	}
}

// SubmitAsync queues a job without blocking. Returns false when the queue is
// full or the pool is closed.
func (p *Pool) SubmitAsync(job Job) bool {
	if p.closed.Load() {
		return false
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	default:
		return false
	}
}

// Results returns the channel job results are emitted on.
func (p *Pool) Results() <-chan *JobResult {
	return p.resultChan
}

// Close shuts the pool down, discarding any undelivered results. Use
// CloseAndWait to collect them instead.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}

	p.cancel()
	close(p.jobsChan)

	done := make(chan struct{})
	go func() {
		for range p.resultChan {
		}
		close(done)
	}()

	p.wg.Wait()
	close(p.resultChan)
	<-done
}

// CloseAndWait stops accepting jobs, waits for the queue to drain and
// returns every pending result.
func (p *Pool) CloseAndWait() *BatchResult {
	if p.closed.Swap(true) {
		return &BatchResult{}
	}

	close(p.jobsChan)

	results := make([]*JobResult, 0, p.jobsSubmitted.Load())
	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(p.resultChan)
		close(done)
	}()

	for result := range p.resultChan {
		results = append(results, result)
	}
	<-done
	p.cancel()

	batch := &BatchResult{
		Results:       results,
		TotalJobs:     int(p.jobsSubmitted.Load()),
		CompletedJobs: int(p.jobsCompleted.Load()),
		TotalDuration: time.Duration(p.totalDuration.Load()),
	}
	logger.Debug().
		Int("jobs", batch.TotalJobs).
		Int("completed", batch.CompletedJobs).
		Msg("worker pool drained")
	return batch
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	AvgDuration   time.Duration
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsCompleted: p.jobsCompleted.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.processJob(job)
		p.jobsCompleted.Add(1)
		p.totalDuration.Add(uint64(result.Duration))

		select {
		case <-p.ctx.Done():
			return
		case p.resultChan <- result:
		}
	}
}

func (p *Pool) processJob(job Job) *JobResult {
	start := time.Now()
	result := &JobResult{ID: job.ID}

	switch {
	case job.Row != nil:
		result.Result = p.validator.ValidateRow(p.ctx, job.Row, job.VaccineType)
	case job.Resource != nil:
		result.Result = p.validator.ValidateJSON(p.ctx, job.Resource)
	default:
		result.Err = ErrEmptyJob
	}

	if result.Result != nil {
		result.Result.JobID = job.ID
	}
	result.Duration = time.Since(start)
	return result
}

func (p *Pool) averageDuration() time.Duration {
	completed := p.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}
