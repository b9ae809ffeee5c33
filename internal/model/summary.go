package model

import "github.com/shopspring/decimal"

// BucketKey identifies one daily summary document.
type BucketKey struct {
	TransactionDate string
	EventName       string
	PerformanceType PerformanceType
}

// Less orders keys by date, then event, then performance type.
func (k BucketKey) Less(o BucketKey) bool {
	if k.TransactionDate != o.TransactionDate {
		return k.TransactionDate < o.TransactionDate
	}
	if k.EventName != o.EventName {
		return k.EventName < o.EventName
	}
	return k.PerformanceType < o.PerformanceType
}

// String renders the key as date|event|type.
func (k BucketKey) String() string {
	return k.TransactionDate + "|" + k.EventName + "|" + string(k.PerformanceType)
}

// KeyOf returns the bucket key a sale record contributes to.
func KeyOf(r SaleRecord) BucketKey {
	return BucketKey{
		TransactionDate: r.TransactionDate,
		EventName:       r.EventName,
		PerformanceType: r.PerformanceType,
	}
}

// DailySummaryBucket holds running totals for one (date, event, type) key.
// Persisted buckets are only ever added to; they disappear only through an
// explicit reset or recompute.
type DailySummaryBucket struct {
	ID                  string          `json:"id,omitempty"`
	Key                 BucketKey       `json:"-"`
	TotalSoldGrossValue decimal.Decimal `json:"totalSoldGrossValue"`
	TotalSoldTickets    int64           `json:"totalSoldTickets"`
	TotalCompTickets    int64           `json:"totalCompTickets"`
}

// Add folds a single sale into the bucket.
func (b *DailySummaryBucket) Add(r SaleRecord) {
	b.TotalSoldGrossValue = b.TotalSoldGrossValue.Add(r.SoldGrossValue)
	b.TotalSoldTickets += r.SoldTickets
	b.TotalCompTickets += r.CompTickets
}

// Merge adds the totals of another bucket onto b.
func (b *DailySummaryBucket) Merge(o DailySummaryBucket) {
	b.TotalSoldGrossValue = b.TotalSoldGrossValue.Add(o.TotalSoldGrossValue)
	b.TotalSoldTickets += o.TotalSoldTickets
	b.TotalCompTickets += o.TotalCompTickets
}
