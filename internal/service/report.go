package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
)

// ShowLookup returns the catalog definitions of an event.
type ShowLookup interface {
	ForEvent(eventName string) []model.ShowDefinition
}

// Reports builds the read-side views over stored sales and summaries.
type Reports struct {
	store repository.Store
	shows ShowLookup
	now   func() time.Time
}

// NewReports constructs Reports.  shows may be nil, in which case no
// occupancy is reported.
func NewReports(store repository.Store, shows ShowLookup) *Reports {
	return &Reports{store: store, shows: shows, now: time.Now}
}

// WithClock returns a copy of r using now as the current time.
func (r *Reports) WithClock(now func() time.Time) *Reports {
	cp := *r
	cp.now = now
	return &cp
}

// Event summarises every stored sale of one event.  It returns
// repository.ErrNotFound when the event has no sales.
func (r *Reports) Event(ctx context.Context, eventName string) (*model.EventReport, error) {
	docs, err := r.store.Query(ctx, model.SalesCollection, repository.Filter{model.FieldEventName: eventName})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, repository.ErrNotFound
	}

	rep := &model.EventReport{
		EventName:          eventName,
		TotalBoxOffice:     decimal.Zero,
		PerformanceTypeMix: map[string]int64{},
	}
	atpSum := decimal.Zero
	var first time.Time
	for _, d := range docs {
		s, err := model.SaleRecordFromFields(d.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode sale %s: %w", d.ID, err)
		}
		rep.TotalBoxOffice = rep.TotalBoxOffice.Add(s.SoldGrossValue)
		rep.TotalTicketsSold += s.SoldTickets
		rep.TotalCompTickets += s.CompTickets
		rep.PerformanceTypeMix[string(s.PerformanceType)] += s.SoldTickets
		atpSum = atpSum.Add(s.AverageTicketPrice)
		if first.IsZero() || s.PerformanceInstant.Before(first) {
			first = s.PerformanceInstant
		}
		if rep.ShowID == "" {
			rep.ShowID = s.ShowID
		}
	}
	rep.Transactions = len(docs)
	// Mean of per-row ATPs, not total gross over total tickets.
	rep.OverallATP = atpSum.DivRound(decimal.NewFromInt(int64(len(docs))), 2)

	if !first.IsZero() {
		rep.FirstPerformance = first.UTC().Format(time.RFC3339)
		days := int(math.Ceil(first.Sub(r.now()).Hours() / 24))
		rep.DaysToPerformance = &days
	}

	if r.shows != nil {
		var capacity int64
		for _, def := range r.shows.ForEvent(eventName) {
			capacity += def.TicketsAvailable
			if rep.ShowID == "" {
				rep.ShowID = def.ID
			}
		}
		if capacity > 0 {
			pct := math.Round(float64(rep.TotalTicketsSold)/float64(capacity)*1000) / 10
			rep.OccupancyPercent = &pct
		}
	}
	return rep, nil
}

// Company totals every summary bucket, plus yesterday's share (UTC).
func (r *Reports) Company(ctx context.Context) (*model.CompanyOverview, error) {
	docs, err := r.store.Query(ctx, model.SummaryCollection, nil)
	if err != nil {
		return nil, err
	}
	yesterday := r.now().UTC().AddDate(0, 0, -1).Format(model.DateLayout)
	out := &model.CompanyOverview{TotalGross: decimal.Zero, YesterdayGross: decimal.Zero}
	events := map[string]bool{}
	for _, d := range docs {
		b, err := model.BucketFromFields(d.ID, d.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode summary %s: %w", d.ID, err)
		}
		out.TotalGross = out.TotalGross.Add(b.TotalSoldGrossValue)
		out.TotalTicketsSold += b.TotalSoldTickets
		if b.Key.TransactionDate == yesterday {
			out.YesterdayGross = out.YesterdayGross.Add(b.TotalSoldGrossValue)
			out.YesterdayTicketsSold += b.TotalSoldTickets
		}
		events[b.Key.EventName] = true
	}
	out.Events = len(events)
	return out, nil
}
