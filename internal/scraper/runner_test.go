package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobflow/internal/domain/job"
	"jobflow/internal/repository"

	"github.com/PuerkitoBio/goquery"
)

type fakeStore struct {
	mu    sync.Mutex
	links map[string]job.Job
	fail  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: map[string]job.Job{}}
}

func (s *fakeStore) Upsert(_ context.Context, j job.Job) (bool, error) {
	if j.ApplyLink == "" {
		return false, repository.ErrMissingApplyLink
	}
	if j.Title == s.fail {
		return false, errors.New("constraint violated")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.links[j.ApplyLink]
	s.links[j.ApplyLink] = j
	return !exists, nil
}

func quietRunner(f Fetcher, store JobStore) *Runner {
	r := NewRunner(f, store, log.New(io.Discard, "", 0), WithWorkers(3), WithRateLimit(0))
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestRunner_TopStartupsOverHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page := r.URL.Query().Get("page")
		_, _ = w.Write([]byte(topstartupsPage("Ad", "Engineer "+page, "Analyst "+page, "Ad")))
	}))
	defer srv.Close()

	store := newFakeStore()
	runner := quietRunner(&CollyFetcher{Timeout: 5 * time.Second}, store)
	src := TopStartupsAt(srv.URL + "/jobs/?job_location=India")

	sum, err := runner.Run(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if hits.Load() != 2 || sum.Pages != 2 {
		t.Fatalf("expected 2 pages fetched, hits=%d summary=%+v", hits.Load(), sum)
	}
	if sum.Found != 4 || sum.Inserted != 4 || sum.Failed != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	sum, err = runner.Run(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("unexpected err on rerun: %v", err)
	}
	if sum.Inserted != 0 || sum.Updated != 4 || len(store.links) != 4 {
		t.Fatalf("expected idempotent rerun, summary=%+v stored=%d", sum, len(store.links))
	}
}

type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*goquery.Selection, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: status=503", url)
	}
	return parseDocument(html)
}

func TestRunner_CountsOutcomes(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://cutshort.test/jobs": cutshortFixture}}
	store := newFakeStore()
	store.fail = "Senior Backend Engineer"

	sum, err := quietRunner(fetcher, store).Run(context.Background(), CutshortAt("https://cutshort.test/jobs"), 5)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected cutshort to fetch one page, got %v", fetcher.calls)
	}
	if sum.Found != 2 || sum.Failed != 1 || sum.Skipped != 1 || sum.Inserted != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestRunner_StopsAtFailedPage(t *testing.T) {
	src := TopStartupsAt("https://board.test/jobs/")
	fetcher := &stubFetcher{pages: map[string]string{
		"https://board.test/jobs/?page=1": topstartupsPage("Ad", "Engineer", "Ad"),
		"https://board.test/jobs/?page=3": topstartupsPage("Ad", "Never", "Ad"),
	}}
	store := newFakeStore()

	sum, err := quietRunner(fetcher, store).Run(context.Background(), src, 3)
	if err != nil {
		t.Fatalf("expected partial run to succeed, got %v", err)
	}
	if len(fetcher.calls) != 2 || sum.Pages != 1 || sum.Inserted != 1 {
		t.Fatalf("expected crawl to stop at page 2, calls=%v summary=%+v", fetcher.calls, sum)
	}
}

func TestRunner_FirstPageFailureIsAnError(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	if _, err := quietRunner(fetcher, newFakeStore()).Run(context.Background(), CutshortAt("https://x.test"), 1); err == nil {
		t.Fatalf("expected error when no page loads")
	}
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	pool.SetRateLimit(1000)
	results := pool.Run(context.Background())

	go func() {
		for i := 0; i < 20; i++ {
			pool.Submit(context.Background(), func(context.Context) Result {
				return Result{Outcome: OutcomeInserted}
			})
		}
		pool.Close()
	}()

	n := 0
	for res := range results {
		if res.Outcome != OutcomeInserted {
			t.Fatalf("unexpected result %+v", res)
		}
		n++
	}
	if n != 20 {
		t.Fatalf("expected 20 results, got %d", n)
	}
}

func TestWorkerPool_SubmitHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if pool.Submit(ctx, func(context.Context) Result { return Result{} }) {
		t.Fatalf("expected submit to fail on cancelled context without workers")
	}
}
