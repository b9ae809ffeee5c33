package model

import "github.com/shopspring/decimal"

// IngestionState is the lifecycle position of an ingestion run.
type IngestionState string

const (
	StateIdle        IngestionState = "Idle"
	StateParsing     IngestionState = "Parsing"
	StateValidating  IngestionState = "Validating"
	StateBuffering   IngestionState = "Buffering"
	StateRecording   IngestionState = "RecordingError"
	StateFlushing    IngestionState = "Flushing"
	StateAggregating IngestionState = "Aggregating"
	StateDone        IngestionState = "Done"
	StateFailed      IngestionState = "Failed"
)

// RowError lists every problem found in one CSV row.  RowIndex is 1-based
// and counts data rows only (the header is not row 1).
type RowError struct {
	RowIndex int      `json:"row"`
	Messages []string `json:"messages"`
}

// IngestionReport is returned to the caller once a file has been processed,
// including when storage failed part way through.
type IngestionReport struct {
	IngestionID    string         `json:"ingestion_id"`
	State          IngestionState `json:"state"`
	TotalRows      int            `json:"total_rows"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	Committed      int            `json:"committed"`
	Batches        int            `json:"batches"`
	BucketsTouched int            `json:"buckets_touched"`
	Errors         []RowError     `json:"errors"`
}

// EventReport is the per-show reporting view.
type EventReport struct {
	EventName          string          `json:"event_name"`
	ShowID             string          `json:"show_id,omitempty"`
	TotalBoxOffice     decimal.Decimal `json:"total_box_office"`
	TotalTicketsSold   int64           `json:"total_tickets_sold"`
	TotalCompTickets   int64           `json:"total_comp_tickets"`
	OverallATP         decimal.Decimal `json:"overall_atp"`
	Transactions       int             `json:"transactions"`
	FirstPerformance   string          `json:"first_performance,omitempty"`
	DaysToPerformance  *int            `json:"days_to_performance,omitempty"`
	OccupancyPercent   *float64        `json:"occupancy_percent,omitempty"`
	PerformanceTypeMix map[string]int64 `json:"performance_type_mix"`
}

// CompanyOverview aggregates all summary buckets.
type CompanyOverview struct {
	TotalGross           decimal.Decimal `json:"total_gross"`
	TotalTicketsSold     int64           `json:"total_tickets_sold"`
	YesterdayGross       decimal.Decimal `json:"yesterday_gross"`
	YesterdayTicketsSold int64           `json:"yesterday_tickets_sold"`
	Events               int             `json:"events"`
}
