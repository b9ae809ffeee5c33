package summary_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/boxoffice-sales/internal/lock"
	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
	"github.com/iliyamo/boxoffice-sales/internal/summary"
)

func sale(t *testing.T, date, event string, pt model.PerformanceType, sold, comp int64, gross string) model.SaleRecord {
	t.Helper()
	tx, err := time.Parse(model.DateLayout, date)
	if err != nil {
		t.Fatal(err)
	}
	perf := tx.Add(5 * 24 * time.Hour).Add(14 * time.Hour)
	if pt == model.Evening {
		perf = perf.Add(5 * time.Hour)
	}
	g := decimal.RequireFromString(gross)
	return model.SaleRecord{
		TransactionInstant: tx.Add(10 * time.Hour),
		PerformanceInstant: perf,
		TransactionDate:    date,
		PerformanceDate:    perf.Format(model.DateLayout),
		EventName:          event,
		ChannelName:        "Web",
		PriceBandName:      "Stalls",
		PerformanceType:    pt,
		SoldTickets:        sold,
		CompTickets:        comp,
		SoldGrossValue:     g,
		AverageTicketPrice: model.AverageTicketPrice(g, sold),
	}
}

func key(date, event string, pt model.PerformanceType) model.BucketKey {
	return model.BucketKey{TransactionDate: date, EventName: event, PerformanceType: pt}
}

func fixture(t *testing.T) []model.SaleRecord {
	return []model.SaleRecord{
		sale(t, "2024-12-20", "Hamilton", model.Evening, 2, 0, "150.00"),
		sale(t, "2024-12-20", "Hamilton", model.Matinee, 3, 1, "210.00"),
		sale(t, "2024-12-20", "Hamilton", model.Evening, 4, 2, "300.50"),
		sale(t, "2024-12-21", "Wicked", model.Evening, 1, 0, "89.99"),
	}
}

func TestAggregate_GroupsAndSums(t *testing.T) {
	b := summary.Aggregate(fixture(t))
	if len(b) != 3 {
		t.Fatalf("buckets = %d, want 3", len(b))
	}
	eve := b[key("2024-12-20", "Hamilton", model.Evening)]
	if eve == nil {
		t.Fatal("missing Hamilton evening bucket")
	}
	if eve.TotalSoldTickets != 6 || eve.TotalCompTickets != 2 || !eve.TotalSoldGrossValue.Equal(decimal.RequireFromString("450.50")) {
		t.Errorf("evening bucket = %+v", eve)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	recs := fixture(t)
	forward := summary.Aggregate(recs)
	reversed := make([]model.SaleRecord, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}
	backward := summary.Aggregate(reversed)
	for k, b := range forward {
		o := backward[k]
		if o == nil || o.TotalSoldTickets != b.TotalSoldTickets || !o.TotalSoldGrossValue.Equal(b.TotalSoldGrossValue) {
			t.Errorf("bucket %s differs: %+v vs %+v", k, b, o)
		}
	}
}

func totals(t *testing.T, s repository.Store) map[model.BucketKey]model.DailySummaryBucket {
	t.Helper()
	list, err := summary.New(s).List(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[model.BucketKey]model.DailySummaryBucket, len(list))
	for _, b := range list {
		if _, dup := out[b.Key]; dup {
			t.Fatalf("duplicate bucket %s", b.Key)
		}
		out[b.Key] = b
	}
	return out
}

func sameTotals(t *testing.T, a, b map[model.BucketKey]model.DailySummaryBucket) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("bucket count %d vs %d", len(a), len(b))
	}
	for k, x := range a {
		y, ok := b[k]
		if !ok || x.TotalSoldTickets != y.TotalSoldTickets || x.TotalCompTickets != y.TotalCompTickets ||
			!x.TotalSoldGrossValue.Equal(y.TotalSoldGrossValue) {
			t.Errorf("bucket %s: %+v vs %+v", k, x, y)
		}
	}
}

func TestMerge_Additive(t *testing.T) {
	ctx := context.Background()
	recs := fixture(t)

	split := repository.NewMemoryStore()
	agg := summary.New(split)
	if _, err := agg.Merge(ctx, summary.Aggregate(recs[:2])); err != nil {
		t.Fatal(err)
	}
	if _, err := agg.Merge(ctx, summary.Aggregate(recs[2:])); err != nil {
		t.Fatal(err)
	}

	whole := repository.NewMemoryStore()
	n, err := summary.New(whole).Merge(ctx, summary.Aggregate(recs))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("touched = %d, want 3", n)
	}
	sameTotals(t, totals(t, split), totals(t, whole))
}

func TestRecompute_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	docs := make([]repository.Document, 0)
	for _, r := range fixture(t) {
		docs = append(docs, repository.Document{Fields: r.Fields()})
	}
	if err := store.BatchCommit(ctx, model.SalesCollection, docs); err != nil {
		t.Fatal(err)
	}
	agg := summary.New(store)

	// Inflate the summaries as a double ingest would.
	for i := 0; i < 2; i++ {
		if _, err := agg.Merge(ctx, summary.Aggregate(fixture(t))); err != nil {
			t.Fatal(err)
		}
	}

	n, err := agg.Recompute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("recompute buckets = %d", n)
	}
	first := totals(t, store)
	if got := first[key("2024-12-20", "Hamilton", model.Evening)].TotalSoldTickets; got != 6 {
		t.Errorf("recompute left %d tickets, want 6", got)
	}
	if _, err := agg.Recompute(ctx); err != nil {
		t.Fatal(err)
	}
	sameTotals(t, first, totals(t, store))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	agg := summary.New(store)
	if _, err := agg.Merge(ctx, summary.Aggregate(fixture(t))); err != nil {
		t.Fatal(err)
	}
	if err := agg.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if store.Count(model.SummaryCollection) != 0 || store.Count(model.SalesCollection) != 0 {
		t.Fatal("reset left documents behind")
	}
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	agg := summary.New(store)
	if _, err := agg.Merge(ctx, summary.Aggregate(fixture(t))); err != nil {
		t.Fatal(err)
	}
	list, err := agg.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Key.TransactionDate != "2024-12-21" {
		t.Fatalf("unexpected order %+v", list)
	}
	only, err := agg.List(ctx, repository.Filter{model.FieldEventName: "Hamilton"})
	if err != nil || len(only) != 2 {
		t.Fatalf("filtered list = %d, %v", len(only), err)
	}
}

// gatedStore holds every summary lookup until both merges have read, so the
// two read-modify-write cycles interleave.
type gatedStore struct {
	*repository.MemoryStore
	arrived sync.WaitGroup
	delay   time.Duration
}

func (g *gatedStore) Query(ctx context.Context, c string, f repository.Filter) ([]repository.Document, error) {
	docs, err := g.MemoryStore.Query(ctx, c, f)
	if c == model.SummaryCollection {
		if g.delay > 0 {
			time.Sleep(g.delay)
		} else {
			g.arrived.Done()
			g.arrived.Wait()
		}
	}
	return docs, err
}

func concurrentMerge(t *testing.T, store repository.Store, opts ...summary.Option) {
	t.Helper()
	ctx := context.Background()
	one := summary.Aggregate([]model.SaleRecord{sale(t, "2024-12-20", "Hamilton", model.Evening, 2, 0, "150.00")})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := summary.New(store, opts...).Merge(ctx, one); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestMerge_ConcurrentWithoutLockLosesUpdate(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	seed := summary.Aggregate([]model.SaleRecord{sale(t, "2024-12-20", "Hamilton", model.Evening, 2, 0, "150.00")})
	if _, err := summary.New(mem).Merge(ctx, seed); err != nil {
		t.Fatal(err)
	}

	g := &gatedStore{MemoryStore: mem}
	g.arrived.Add(2)
	concurrentMerge(t, g)

	got := totals(t, mem)[key("2024-12-20", "Hamilton", model.Evening)]
	if got.TotalSoldTickets != 4 {
		t.Fatalf("expected the interleaved merges to lose one update (4 tickets), got %d", got.TotalSoldTickets)
	}
}

func TestMerge_ConcurrentWithLock(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	seed := summary.Aggregate([]model.SaleRecord{sale(t, "2024-12-20", "Hamilton", model.Evening, 2, 0, "150.00")})
	if _, err := summary.New(mem).Merge(ctx, seed); err != nil {
		t.Fatal(err)
	}

	g := &gatedStore{MemoryStore: mem, delay: 20 * time.Millisecond}
	concurrentMerge(t, g, summary.WithLocker(lock.NewKeyedMutex()))

	got := totals(t, mem)[key("2024-12-20", "Hamilton", model.Evening)]
	if got.TotalSoldTickets != 6 || !got.TotalSoldGrossValue.Equal(decimal.RequireFromString("450")) {
		t.Fatalf("locked merges = %+v, want 6 tickets / 450", got)
	}
}
