// Package validation converts raw CSV rows into typed sale records.  It is
// the only place untyped rows are read: everything downstream works on
// model.SaleRecord.
//
// A row is checked completely before it is rejected.  Every missing field,
// unreadable date and bad number is collected into one ValidationError so
// that a user fixing a large export sees all problems with a row at once.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/boxoffice-sales/internal/datetime"
	"github.com/iliyamo/boxoffice-sales/internal/model"
)

// RequiredColumns lists the columns every row must carry, in report order.
var RequiredColumns = []string{
	model.ColTransactionDateTime,
	model.ColEventName,
	model.ColChannelName,
	model.ColPriceBandName,
	model.ColPerformanceDateTime,
	model.ColSoldTickets,
	model.ColCompTickets,
	model.ColSoldGrossValue,
}

// ValidationError holds every violation found in one row.
type ValidationError struct {
	RowIndex int
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.RowIndex, strings.Join(e.Messages, " "))
}

// ShowResolver maps an event to a catalog show id.  A false result leaves
// the record unlinked; the row is still valid.
type ShowResolver interface {
	Resolve(eventName string, pt model.PerformanceType) (string, bool)
}

// Validator validates rows.  The zero value is not usable; call New.
type Validator struct {
	structs  *validator.Validate
	resolver ShowResolver
	now      func() time.Time
}

// Option customises a Validator.
type Option func(*Validator)

// WithResolver links records to shows from a catalog.
func WithResolver(r ShowResolver) Option {
	return func(v *Validator) { v.resolver = r }
}

// WithClock overrides the IngestedAt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New builds a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		structs: validator.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks one raw row.  rowIndex is only used for error context.
// It returns either a fully populated record or a *ValidationError, never
// both.
func (v *Validator) Validate(raw model.RawSalesRow, rowIndex int) (*model.SaleRecord, error) {
	row := trimRow(raw)
	repairPerformanceDateTime(row)

	var msgs []string
	for _, col := range RequiredColumns {
		if row[col] == "" {
			msgs = append(msgs, fmt.Sprintf("Field '%s' is empty.", col))
		}
	}

	var rec model.SaleRecord

	if s := row[model.ColTransactionDateTime]; s != "" {
		t, err := datetime.Parse(s, model.ColTransactionDateTime)
		if err != nil {
			msgs = append(msgs, err.Error())
		}
		rec.TransactionInstant = t
	}
	if s := row[model.ColPerformanceDateTime]; s != "" {
		t, err := datetime.Parse(s, model.ColPerformanceDateTime)
		if err != nil {
			msgs = append(msgs, err.Error())
		}
		rec.PerformanceInstant = t
	}

	if s := row[model.ColSoldTickets]; s != "" {
		n, err := parseCount(s)
		switch {
		case err != nil:
			msgs = append(msgs, countMessage(model.ColSoldTickets, s, err))
		case n < 0:
			msgs = append(msgs, fmt.Sprintf("Field '%s' must not be negative (got '%s').", model.ColSoldTickets, s))
		default:
			rec.SoldTickets = n
		}
	}
	if s := row[model.ColSoldGrossValue]; s != "" {
		d, err := parseMoney(s)
		switch {
		case err != nil:
			msgs = append(msgs, fmt.Sprintf("Field '%s' is not a valid number (got '%s').", model.ColSoldGrossValue, s))
		case d.IsNegative():
			msgs = append(msgs, fmt.Sprintf("Field '%s' must not be negative (got '%s').", model.ColSoldGrossValue, s))
		default:
			rec.SoldGrossValue = d
		}
	}

	// Unreadable comp values default to 0; only an out-of-range count fails
	// the row, since it is a number that cannot be stored.
	if n, err := parseCount(row[model.ColCompTickets]); err == nil && n > 0 {
		rec.CompTickets = n
	} else if errors.Is(err, strconv.ErrRange) {
		msgs = append(msgs, countMessage(model.ColCompTickets, row[model.ColCompTickets], err))
	}
	if d, err := parseMoney(row[model.ColCompGrossValue]); err == nil {
		rec.CompGrossValue = d
	}

	if len(msgs) > 0 {
		return nil, &ValidationError{RowIndex: rowIndex, Messages: msgs}
	}

	rec.TransactionDate = datetime.DateOf(rec.TransactionInstant)
	rec.PerformanceDate = datetime.DateOf(rec.PerformanceInstant)
	rec.PerformanceType = model.PerformanceTypeAt(rec.PerformanceInstant)
	rec.EventName = row[model.ColEventName]
	rec.ChannelName = row[model.ColChannelName]
	rec.PriceBandName = row[model.ColPriceBandName]
	rec.AverageTicketPrice = model.AverageTicketPrice(rec.SoldGrossValue, rec.SoldTickets)
	rec.IngestedAt = v.now().UTC()

	if err := v.structs.Struct(rec); err != nil {
		return nil, &ValidationError{RowIndex: rowIndex, Messages: structMessages(err)}
	}

	if v.resolver != nil {
		if id, ok := v.resolver.Resolve(rec.EventName, rec.PerformanceType); ok {
			rec.ShowID = id
		}
	}
	return &rec, nil
}

// trimRow copies raw with whitespace stripped from keys and values.
// Spreadsheet exports often pad header names.
func trimRow(raw model.RawSalesRow) model.RawSalesRow {
	out := make(model.RawSalesRow, len(raw))
	for k, val := range raw {
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}

// repairPerformanceDateTime fills Performance Date Time for legacy exports
// that only carry PerformanceDate and Performance Start Time.
func repairPerformanceDateTime(row model.RawSalesRow) {
	if row[model.ColPerformanceDateTime] != "" {
		return
	}
	date, start := row[model.ColPerformanceDate], row[model.ColPerformanceStartTime]
	if date == "" || start == "" {
		return
	}
	row[model.ColPerformanceDateTime] = date + " " + start
}

func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, strconv.ErrRange
	}
	// Some exports render counts as "2.0".
	d, derr := decimal.NewFromString(s)
	if derr != nil || !d.Equal(d.Truncate(0)) {
		return 0, err
	}
	if d.LessThan(minCount) || d.GreaterThan(maxCount) {
		return 0, strconv.ErrRange
	}
	return d.IntPart(), nil
}

var (
	minCount = decimal.NewFromInt(math.MinInt64)
	maxCount = decimal.NewFromInt(math.MaxInt64)
)

// countMessage describes a count that failed to parse.
func countMessage(col, s string, err error) string {
	if errors.Is(err, strconv.ErrRange) {
		return fmt.Sprintf("Field '%s' is out of range (got '%s').", col, s)
	}
	return fmt.Sprintf("Field '%s' is not a valid number (got '%s').", col, s)
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, strconv.ErrSyntax
	}
	return decimal.NewFromString(s)
}

// columnFor maps record fields back to the CSV column a user would fix.
var columnFor = map[string]string{
	"TransactionInstant": model.ColTransactionDateTime,
	"TransactionDate":    model.ColTransactionDateTime,
	"PerformanceInstant": model.ColPerformanceDateTime,
	"PerformanceDate":    model.ColPerformanceDateTime,
	"PerformanceType":    model.ColPerformanceDateTime,
	"EventName":          model.ColEventName,
	"ChannelName":        model.ColChannelName,
	"PriceBandName":      model.ColPriceBandName,
	"SoldTickets":        model.ColSoldTickets,
	"CompTickets":        model.ColCompTickets,
}

func structMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		col := columnFor[fe.Field()]
		if col == "" {
			col = fe.Field()
		}
		msgs = append(msgs, fmt.Sprintf("Field '%s' failed the '%s' check.", col, fe.Tag()))
	}
	return msgs
}
