package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsaggregator/internal/infra/feed"
	"newsaggregator/internal/store"
)

// boundedConcurrencyStore serves a fixed batch of due feeds and tracks the
// maximum number of feeds ever locked concurrently.
type boundedConcurrencyStore struct {
	*stubStore
	due []store.DueFeed

	mu        sync.Mutex
	current   int
	maxActive int32
}

func newBoundedConcurrencyStore(n int) *boundedConcurrencyStore {
	due := make([]store.DueFeed, n)
	for i := range due {
		due[i] = dueFeed(int64(i + 1))
	}
	return &boundedConcurrencyStore{stubStore: newStubStore(), due: due}
}

func (b *boundedConcurrencyStore) ListDue(ctx context.Context, limit int, now time.Time) ([]store.DueFeed, error) {
	return b.due, nil
}

func (b *boundedConcurrencyStore) TryAcquireLock(ctx context.Context, feedID int64) (bool, func(), error) {
	b.mu.Lock()
	b.current++
	if int32(b.current) > atomic.LoadInt32(&b.maxActive) {
		atomic.StoreInt32(&b.maxActive, int32(b.current))
	}
	b.mu.Unlock()

	release := func() {
		b.mu.Lock()
		b.current--
		b.mu.Unlock()
	}
	return true, release, nil
}

// blockingFetcher sleeps before returning, so concurrent feed tasks overlap
// long enough for the concurrency cap to be observable.
type blockingFetcher struct {
	delay time.Duration
}

func (f *blockingFetcher) Fetch(ctx context.Context, feedURL, lastETag string) (*feed.Result, error) {
	time.Sleep(f.delay)
	return &feed.Result{NotModified: true}, nil
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	const feeds = 6
	const concurrency = 2

	st := newBoundedConcurrencyStore(feeds)
	processor := NewProcessor(st, &blockingFetcher{delay: 20 * time.Millisecond}, &stubTranslator{}, nil, ProcessorConfig{})

	var dispatched int
	sched := NewScheduler(st, processor, SchedulerConfig{
		Interval:       time.Hour,
		BatchSize:      feeds,
		Concurrency:    concurrency,
		OnPassComplete: func(n int) { dispatched = n },
	})

	sched.runPass(context.Background())

	if got := atomic.LoadInt32(&st.maxActive); got > int32(concurrency) {
		t.Fatalf("max concurrent feed tasks = %d, want <= %d", got, concurrency)
	}
	if dispatched != feeds {
		t.Fatalf("OnPassComplete dispatched = %d, want %d", dispatched, feeds)
	}
}

func TestScheduler_RunPassReturnsWhenNoFeedsDue(t *testing.T) {
	st := newStubStore() // ListDue returns empty slice
	processor := NewProcessor(st, &stubFetcher{}, &stubTranslator{}, nil, ProcessorConfig{})
	sched := NewScheduler(st, processor, SchedulerConfig{Concurrency: 1, BatchSize: 4})

	done := make(chan struct{})
	go func() {
		sched.runPass(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runPass did not return promptly with no due feeds")
	}
}
