// Package summary maintains the daily_event_summary collection: one running
// total per (transaction date, event, performance type).
//
// Totals are only ever added to.  Re-ingesting a file therefore counts its
// sales twice; Recompute rebuilds every bucket from sales_data when that
// needs undoing.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iliyamo/boxoffice-sales/internal/lock"
	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
)

// Buckets maps keys to their totals.
type Buckets map[model.BucketKey]*model.DailySummaryBucket

// Keys returns the keys in Less order.
func (b Buckets) Keys() []model.BucketKey {
	keys := make([]model.BucketKey, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Aggregate groups records into buckets.  The result does not depend on
// the order of records.
func Aggregate(records []model.SaleRecord) Buckets {
	out := make(Buckets)
	for _, r := range records {
		k := model.KeyOf(r)
		b, ok := out[k]
		if !ok {
			b = &model.DailySummaryBucket{Key: k}
			out[k] = b
		}
		b.Add(r)
	}
	return out
}

// Aggregator persists buckets into a Store.
type Aggregator struct {
	store  repository.Store
	locker lock.Locker
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithLocker serialises merges per bucket key.  Without a locker two
// concurrent merges of the same key may lose one update.
func WithLocker(l lock.Locker) Option {
	return func(a *Aggregator) { a.locker = l }
}

// New builds an Aggregator writing to store.
func New(store repository.Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Merge adds every bucket onto its persisted document, creating documents
// for new keys.  Keys are processed in sorted order.  It returns how many
// buckets were written before the first error.
func (a *Aggregator) Merge(ctx context.Context, buckets Buckets) (int, error) {
	touched := 0
	for _, k := range buckets.Keys() {
		if err := a.mergeOne(ctx, *buckets[k]); err != nil {
			return touched, fmt.Errorf("merge bucket %s: %w", k, err)
		}
		touched++
	}
	return touched, nil
}

func (a *Aggregator) mergeOne(ctx context.Context, b model.DailySummaryBucket) error {
	if a.locker != nil {
		release, err := a.locker.Lock(ctx, b.Key.String())
		if err != nil {
			return err
		}
		defer release()
	}

	docs, err := a.store.Query(ctx, model.SummaryCollection, repository.Filter(b.Key.KeyFields()))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		_, err := a.store.Insert(ctx, model.SummaryCollection, repository.Document{Fields: b.Fields()})
		return err
	}
	if len(docs) > 1 {
		slog.Warn("duplicate summary documents", "key", b.Key.String(), "count", len(docs))
	}
	existing, err := model.BucketFromFields(docs[0].ID, docs[0].Fields)
	if err != nil {
		return err
	}
	existing.Merge(b)
	return a.store.Update(ctx, model.SummaryCollection, existing.ID, existing.TotalsFields())
}

// Recompute rebuilds the summary collection from sales_data.  Running it
// twice leaves the same totals.
func (a *Aggregator) Recompute(ctx context.Context) (int, error) {
	docs, err := a.store.Query(ctx, model.SalesCollection, nil)
	if err != nil {
		return 0, fmt.Errorf("scan sales: %w", err)
	}
	records := make([]model.SaleRecord, 0, len(docs))
	for _, d := range docs {
		r, err := model.SaleRecordFromFields(d.Fields)
		if err != nil {
			return 0, fmt.Errorf("decode sale %s: %w", d.ID, err)
		}
		records = append(records, r)
	}
	buckets := Aggregate(records)

	if err := a.store.DeleteAll(ctx, model.SummaryCollection); err != nil {
		return 0, fmt.Errorf("clear summaries: %w", err)
	}
	for _, k := range buckets.Keys() {
		doc := repository.Document{Fields: buckets[k].Fields()}
		if _, err := a.store.Insert(ctx, model.SummaryCollection, doc); err != nil {
			return 0, fmt.Errorf("insert bucket %s: %w", k, err)
		}
	}
	slog.Info("summaries recomputed", "sales", len(records), "buckets", len(buckets))
	return len(buckets), nil
}

// Reset deletes all sales and summaries.
func (a *Aggregator) Reset(ctx context.Context) error {
	for _, c := range []string{model.SalesCollection, model.SummaryCollection} {
		if err := a.store.DeleteAll(ctx, c); err != nil {
			return fmt.Errorf("delete %s: %w", c, err)
		}
	}
	slog.Info("sales and summaries deleted")
	return nil
}

// List returns persisted buckets matching filter, newest date first.
func (a *Aggregator) List(ctx context.Context, filter repository.Filter) ([]model.DailySummaryBucket, error) {
	docs, err := a.store.Query(ctx, model.SummaryCollection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.DailySummaryBucket, 0, len(docs))
	for _, d := range docs {
		b, err := model.BucketFromFields(d.ID, d.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode summary %s: %w", d.ID, err)
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key.TransactionDate != out[j].Key.TransactionDate {
			return out[i].Key.TransactionDate > out[j].Key.TransactionDate
		}
		return out[i].Key.Less(out[j].Key)
	})
	return out, nil
}
