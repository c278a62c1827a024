// Package scraper fills the job catalogue from public job boards.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jobflow/internal/domain/job"
	"jobflow/internal/repository"
)

type JobStore interface {
	Upsert(ctx context.Context, j job.Job) (bool, error)
}

// Summary counts what one run did.
type Summary struct {
	Source   string
	Pages    int
	Found    int
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

type Runner struct {
	fetcher Fetcher
	store   JobStore
	logger  *log.Logger
	workers int
	rps     float64
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

type RunnerOption func(*Runner)

func WithWorkers(n int) RunnerOption {
	return func(r *Runner) { r.workers = n }
}

// WithRateLimit caps writes per second.
func WithRateLimit(rps float64) RunnerOption {
	return func(r *Runner) { r.rps = rps }
}

func NewRunner(fetcher Fetcher, store JobStore, logger *log.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		workers: 4,
		rps:     10,
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run scrapes up to pages listing pages of src and upserts every job with an
// apply link. A page that fails to load ends the crawl; jobs already queued
// are still written.
func (r *Runner) Run(ctx context.Context, src Source, pages int) (Summary, error) {
	if r == nil || r.fetcher == nil || r.store == nil {
		return Summary{}, fmt.Errorf("scraper runner not configured")
	}
	started := r.now()
	sum := Summary{Source: src.Name}

	pool := NewWorkerPool(r.workers, r.workers*2)
	pool.SetRateLimit(r.rps)
	results := pool.Run(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			switch res.Outcome {
			case OutcomeInserted:
				sum.Inserted++
			case OutcomeUpdated:
				sum.Updated++
			case OutcomeSkipped:
				sum.Skipped++
			default:
				sum.Failed++
				r.logger.Printf("[Scraper] write failed source=%s err=%v", src.Name, res.Err)
			}
		}
	}()

	var crawlErr error
	urls := src.URLs(pages)
	for i, url := range urls {
		if i > 0 && src.PageDelay > 0 {
			if err := r.sleep(ctx, src.PageDelay); err != nil {
				crawlErr = err
				break
			}
		}

		root, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			crawlErr = fmt.Errorf("page %d: %w", i+1, err)
			r.logger.Printf("[Scraper] fetch failed source=%s page=%d err=%v", src.Name, i+1, err)
			break
		}
		sum.Pages++

		jobs := src.Parse(root)
		if len(jobs) == 0 {
			r.logger.Printf("[Scraper] no jobs on page source=%s page=%d", src.Name, i+1)
			continue
		}
		sum.Found += len(jobs)

		for _, j := range jobs {
			if !pool.Submit(ctx, r.writeTask(j)) {
				crawlErr = ctx.Err()
				break
			}
		}
		if crawlErr != nil {
			break
		}
	}

	pool.Close()
	<-done
	sum.Elapsed = r.now().Sub(started)

	r.logger.Printf("[Scraper] run finished source=%s pages=%d found=%d inserted=%d updated=%d skipped=%d failed=%d elapsed=%s",
		sum.Source, sum.Pages, sum.Found, sum.Inserted, sum.Updated, sum.Skipped, sum.Failed, sum.Elapsed.Round(time.Millisecond))

	if crawlErr != nil && sum.Pages == 0 {
		return sum, crawlErr
	}
	return sum, nil
}

func (r *Runner) writeTask(j job.Job) Task {
	return func(ctx context.Context) Result {
		inserted, err := r.store.Upsert(ctx, j)
		switch {
		case errors.Is(err, repository.ErrMissingApplyLink):
			return Result{Outcome: OutcomeSkipped}
		case err != nil:
			return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("%q: %w", j.Title, err)}
		case inserted:
			return Result{Outcome: OutcomeInserted}
		default:
			return Result{Outcome: OutcomeUpdated}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
