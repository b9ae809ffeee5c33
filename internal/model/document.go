package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Document field names shared by the sales and summary collections.
const (
	FieldTransactionDate     = "transactionDate"
	FieldEventName           = "eventName"
	FieldPerformanceType     = "performanceType"
	FieldTotalSoldGrossValue = "totalSoldGrossValue"
	FieldTotalSoldTickets    = "totalSoldTickets"
	FieldTotalCompTickets    = "totalCompTickets"
)

// Fields flattens the record into JSON-safe primitives for a document store.
// Money is stored as a decimal string so no precision is lost.
func (r SaleRecord) Fields() map[string]any {
	f := map[string]any{
		"transactionInstant":  r.TransactionInstant.UTC().Format(time.RFC3339Nano),
		"performanceInstant":  r.PerformanceInstant.UTC().Format(time.RFC3339Nano),
		FieldTransactionDate:  r.TransactionDate,
		"performanceDate":     r.PerformanceDate,
		FieldEventName:        r.EventName,
		"channelName":         r.ChannelName,
		"priceBandName":       r.PriceBandName,
		FieldPerformanceType:  string(r.PerformanceType),
		"soldTickets":         r.SoldTickets,
		"compTickets":         r.CompTickets,
		"soldGrossValue":      r.SoldGrossValue.String(),
		"compGrossValue":      r.CompGrossValue.String(),
		"averageTicketPrice":  r.AverageTicketPrice.String(),
		"ingestedAt":          r.IngestedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.ShowID != "" {
		f["showId"] = r.ShowID
	}
	if r.IngestionID != "" {
		f["ingestionId"] = r.IngestionID
	}
	return f
}

// SaleRecordFromFields rebuilds a record read back from a store.  Missing
// numeric fields decode as zero.
func SaleRecordFromFields(f map[string]any) (SaleRecord, error) {
	var (
		r   SaleRecord
		err error
	)
	if r.TransactionInstant, err = timeField(f, "transactionInstant"); err != nil {
		return r, err
	}
	if r.PerformanceInstant, err = timeField(f, "performanceInstant"); err != nil {
		return r, err
	}
	r.TransactionDate = stringField(f, FieldTransactionDate)
	r.PerformanceDate = stringField(f, "performanceDate")
	r.EventName = stringField(f, FieldEventName)
	r.ChannelName = stringField(f, "channelName")
	r.PriceBandName = stringField(f, "priceBandName")
	r.PerformanceType = PerformanceType(stringField(f, FieldPerformanceType))
	if r.SoldTickets, err = IntField(f, "soldTickets"); err != nil {
		return r, err
	}
	if r.CompTickets, err = IntField(f, "compTickets"); err != nil {
		return r, err
	}
	if r.SoldGrossValue, err = DecimalField(f, "soldGrossValue"); err != nil {
		return r, err
	}
	if r.CompGrossValue, err = DecimalField(f, "compGrossValue"); err != nil {
		return r, err
	}
	if r.AverageTicketPrice, err = DecimalField(f, "averageTicketPrice"); err != nil {
		return r, err
	}
	r.ShowID = stringField(f, "showId")
	r.IngestionID = stringField(f, "ingestionId")
	if _, ok := f["ingestedAt"]; ok {
		if r.IngestedAt, err = timeField(f, "ingestedAt"); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Fields flattens the bucket, key included, for a document store.
func (b DailySummaryBucket) Fields() map[string]any {
	return map[string]any{
		FieldTransactionDate:     b.Key.TransactionDate,
		FieldEventName:           b.Key.EventName,
		FieldPerformanceType:     string(b.Key.PerformanceType),
		FieldTotalSoldGrossValue: b.TotalSoldGrossValue.String(),
		FieldTotalSoldTickets:    b.TotalSoldTickets,
		FieldTotalCompTickets:    b.TotalCompTickets,
	}
}

// TotalsFields returns only the running totals, used for partial updates.
func (b DailySummaryBucket) TotalsFields() map[string]any {
	return map[string]any{
		FieldTotalSoldGrossValue: b.TotalSoldGrossValue.String(),
		FieldTotalSoldTickets:    b.TotalSoldTickets,
		FieldTotalCompTickets:    b.TotalCompTickets,
	}
}

// KeyFields returns the equality filter that selects the bucket's document.
func (k BucketKey) KeyFields() map[string]any {
	return map[string]any{
		FieldTransactionDate: k.TransactionDate,
		FieldEventName:       k.EventName,
		FieldPerformanceType: string(k.PerformanceType),
	}
}

// BucketFromFields decodes a persisted summary document.
func BucketFromFields(id string, f map[string]any) (DailySummaryBucket, error) {
	b := DailySummaryBucket{
		ID: id,
		Key: BucketKey{
			TransactionDate: stringField(f, FieldTransactionDate),
			EventName:       stringField(f, FieldEventName),
			PerformanceType: PerformanceType(stringField(f, FieldPerformanceType)),
		},
	}
	var err error
	if b.TotalSoldGrossValue, err = DecimalField(f, FieldTotalSoldGrossValue); err != nil {
		return b, err
	}
	if b.TotalSoldTickets, err = IntField(f, FieldTotalSoldTickets); err != nil {
		return b, err
	}
	if b.TotalCompTickets, err = IntField(f, FieldTotalCompTickets); err != nil {
		return b, err
	}
	return b, nil
}

func stringField(f map[string]any, key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func timeField(f map[string]any, key string) (time.Time, error) {
	s := stringField(f, key)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return t.UTC(), nil
}

// IntField reads an integer that may have been stored natively or decoded
// from JSON as a float or json.Number.
func IntField(f map[string]any, key string) (int64, error) {
	switch v := f[key].(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

// DecimalField reads a money value stored as a string or JSON number.
func DecimalField(f map[string]any, key string) (decimal.Decimal, error) {
	switch v := f[key].(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: %w", key, err)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	default:
		return decimal.Zero, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}
