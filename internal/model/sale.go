package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collection names used by the ingestion pipeline.
const (
	SalesCollection   = "sales_data"
	SummaryCollection = "daily_event_summary"
)

// CSV column names of a box-office sales export.
const (
	ColTransactionDateTime  = "Transaction Completed Date Time"
	ColEventName            = "Event Name"
	ColChannelName          = "Channel Name"
	ColPriceBandName        = "Price Band Name"
	ColPerformanceDateTime  = "Performance Date Time"
	ColSoldTickets          = "Sold Tickets"
	ColCompTickets          = "Comp Tickets"
	ColSoldGrossValue       = "Sold Gross Value"
	ColCompGrossValue       = "Comp Gross Value"
	ColPerformanceDate      = "PerformanceDate"
	ColPerformanceStartTime = "Performance Start Time"
)

// DateLayout is the calendar-date projection used for grouping keys.
const DateLayout = "2006-01-02"

// RawSalesRow is one CSV line keyed by header name.  It never leaves the
// validation boundary.
type RawSalesRow map[string]string

// PerformanceType classifies a performance by its start hour.
type PerformanceType string

const (
	Matinee PerformanceType = "Matinee"
	Evening PerformanceType = "Evening"
)

// EveningStartHour is the first hour (UTC) treated as an evening performance.
const EveningStartHour = 17

// PerformanceTypeAt returns Evening for performances starting at or after
// 17:00 and Matinee otherwise.
func PerformanceTypeAt(t time.Time) PerformanceType {
	if t.Hour() >= EveningStartHour {
		return Evening
	}
	return Matinee
}

// SaleRecord is the validated, typed form of one sales row.  A SaleRecord
// is only ever built by the validator once every required field has been
// checked, so callers can rely on all fields being populated.
//
// Fields:
//
//	TransactionInstant – when the transaction completed (UTC).
//	PerformanceInstant – when the performance starts (UTC).
//	TransactionDate    – YYYY-MM-DD projection of TransactionInstant.
//	PerformanceDate    – YYYY-MM-DD projection of PerformanceInstant.
//	EventName          – show title as exported by the ticketing system.
//	ChannelName        – sales channel (box office, web, agency...).
//	PriceBandName      – price band the tickets were sold in.
//	PerformanceType    – Matinee or Evening.
//	SoldTickets        – paid tickets in the transaction.
//	CompTickets        – complimentary tickets, 0 when absent.
//	SoldGrossValue     – gross revenue of the paid tickets.
//	CompGrossValue     – nominal value of the comps, 0 when absent.
//	AverageTicketPrice – SoldGrossValue / SoldTickets, 0 when nothing sold.
//	ShowID             – catalog show the row belongs to, empty when unknown.
//	IngestionID        – run that produced the record.
//	IngestedAt         – processing timestamp.
type SaleRecord struct {
	TransactionInstant time.Time       `json:"transactionInstant" validate:"required"`
	PerformanceInstant time.Time       `json:"performanceInstant" validate:"required"`
	TransactionDate    string          `json:"transactionDate" validate:"required,datetime=2006-01-02"`
	PerformanceDate    string          `json:"performanceDate" validate:"required,datetime=2006-01-02"`
	EventName          string          `json:"eventName" validate:"required"`
	ChannelName        string          `json:"channelName" validate:"required"`
	PriceBandName      string          `json:"priceBandName" validate:"required"`
	PerformanceType    PerformanceType `json:"performanceType" validate:"oneof=Matinee Evening"`
	SoldTickets        int64           `json:"soldTickets" validate:"gte=0"`
	CompTickets        int64           `json:"compTickets" validate:"gte=0"`
	SoldGrossValue     decimal.Decimal `json:"soldGrossValue"`
	CompGrossValue     decimal.Decimal `json:"compGrossValue"`
	AverageTicketPrice decimal.Decimal `json:"averageTicketPrice"`
	ShowID             string          `json:"showId,omitempty"`
	IngestionID        string          `json:"ingestionId,omitempty"`
	IngestedAt         time.Time       `json:"ingestedAt"`
}

// AverageTicketPrice divides gross by tickets, rounded to pence.  It returns
// zero when no tickets were sold.
func AverageTicketPrice(gross decimal.Decimal, tickets int64) decimal.Decimal {
	if tickets <= 0 {
		return decimal.Zero
	}
	return gross.DivRound(decimal.NewFromInt(tickets), 2)
}
