package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/boxoffice-sales/internal/ingest"
	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
)

// recordingStore remembers batch sizes and can fail a given commit.
type recordingStore struct {
	*repository.MemoryStore
	mu      sync.Mutex
	sizes   []int
	failAt  int // 1-based commit number to fail, 0 never
	failErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: repository.NewMemoryStore()}
}

func (s *recordingStore) BatchCommit(ctx context.Context, c string, docs []repository.Document) error {
	s.mu.Lock()
	n := len(s.sizes) + 1
	s.mu.Unlock()
	if s.failAt == n {
		s.mu.Lock()
		s.sizes = append(s.sizes, -1)
		s.mu.Unlock()
		return s.failErr
	}
	if err := s.MemoryStore.BatchCommit(ctx, c, docs); err != nil {
		return err
	}
	s.mu.Lock()
	s.sizes = append(s.sizes, len(docs))
	s.mu.Unlock()
	return nil
}

func records(n int) []model.SaleRecord {
	out := make([]model.SaleRecord, n)
	base := time.Date(2024, time.December, 20, 10, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = model.SaleRecord{
			TransactionInstant: base,
			PerformanceInstant: base.Add(5 * 24 * time.Hour).Add(9 * time.Hour),
			TransactionDate:    "2024-12-20",
			PerformanceDate:    "2024-12-25",
			EventName:          "Hamilton",
			ChannelName:        "Web",
			PriceBandName:      "Stalls",
			PerformanceType:    model.Evening,
			SoldTickets:        1,
			SoldGrossValue:     decimal.NewFromInt(75),
			AverageTicketPrice: decimal.NewFromInt(75),
		}
	}
	return out
}

func TestClampBatchSize(t *testing.T) {
	cases := map[int]int{0: 490, -3: 490, 1: 1, 490: 490, 500: 500, 501: 500, 10000: 500}
	for in, want := range cases {
		if got := ingest.ClampBatchSize(in); got != want {
			t.Errorf("ClampBatchSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBatchWriter_RespectsCap(t *testing.T) {
	store := newRecordingStore()
	var progress []ingest.Progress
	w := ingest.NewBatchWriter(store, 0, ingest.WithObservers(ingest.ObserverFunc(func(_ context.Context, p ingest.Progress) {
		progress = append(progress, p)
	})))

	stats, err := w.Write(context.Background(), records(1001))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(store.sizes) < 3 {
		t.Fatalf("commits = %d, want at least 3", len(store.sizes))
	}
	total := 0
	for _, n := range store.sizes {
		if n > w.Size() {
			t.Errorf("batch of %d exceeds cap %d", n, w.Size())
		}
		total += n
	}
	if total != 1001 || stats.Committed != 1001 || stats.Batches != len(store.sizes) {
		t.Errorf("total = %d, stats = %+v", total, stats)
	}
	if store.Count(model.SalesCollection) != 1001 {
		t.Errorf("stored %d documents", store.Count(model.SalesCollection))
	}
	if len(progress) != stats.Batches || progress[len(progress)-1].Committed != 1001 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestBatchWriter_CommitFailureStops(t *testing.T) {
	store := newRecordingStore()
	store.failAt = 2
	store.failErr = errors.New("quota exceeded")
	w := ingest.NewBatchWriter(store, 100)

	stats, err := w.Write(context.Background(), records(350))
	var se *ingest.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if se.Committed != 100 || stats.Committed != 100 {
		t.Errorf("committed = %d / %d, want 100", se.Committed, stats.Committed)
	}
	if !errors.Is(err, store.failErr) {
		t.Error("storage error should wrap the store error")
	}
	if len(store.sizes) != 2 {
		t.Errorf("writer kept committing after a failure: %v", store.sizes)
	}
	if store.Count(model.SalesCollection) != 100 {
		t.Errorf("stored %d documents", store.Count(model.SalesCollection))
	}
}

func TestBatchWriter_CancelBetweenBatches(t *testing.T) {
	store := newRecordingStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := ingest.NewBatchWriter(store, 10, ingest.WithObservers(ingest.ObserverFunc(func(context.Context, ingest.Progress) {
		cancel()
	})))

	stats, err := w.Write(ctx, records(35))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stats.Batches != 1 || stats.Committed != 10 {
		t.Errorf("stats = %+v, want one full batch", stats)
	}
	if store.Count(model.SalesCollection) != 10 {
		t.Errorf("partial batch became visible: %d documents", store.Count(model.SalesCollection))
	}
}

func TestBatchWriter_CommitHookAndFraction(t *testing.T) {
	store := newRecordingStore()
	var hooked int
	var last ingest.Progress
	w := ingest.NewBatchWriter(store, 4,
		ingest.WithIngestionID("run-1"),
		ingest.WithCommitHook(func(b []model.SaleRecord) { hooked += len(b) }),
		ingest.WithInputPosition(func() (int64, int64) { return 50, 100 }),
		ingest.WithObservers(ingest.ObserverFunc(func(_ context.Context, p ingest.Progress) { last = p })),
	)
	if _, err := w.Write(context.Background(), records(6)); err != nil {
		t.Fatal(err)
	}
	if hooked != 6 {
		t.Errorf("hook saw %d records", hooked)
	}
	if last.IngestionID != "run-1" || last.Fraction != 0.5 || last.Batches != 2 {
		t.Errorf("last progress = %+v", last)
	}
}
