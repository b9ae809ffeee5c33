package model

import "strings"

// ShowDefinition describes a run of an event in the show catalog.  The
// ingestion pipeline only reads it: Name and PerformanceType resolve a sale
// row to ID, and reporting uses TicketsAvailable to compute occupancy.
//
// Fields:
//
//	ID                      – catalog identifier stamped onto sale records.
//	Name                    – event name exactly as it appears in exports.
//	PerformanceType         – Matinee or Evening; empty matches both.
//	PerformanceTime         – advertised curtain-up time (e.g. "19:30").
//	FirstShowDate           – first performance date (YYYY-MM-DD).
//	OnSaleDate              – date tickets went on sale (YYYY-MM-DD).
//	TicketsAvailable        – capacity across the run, 0 when unknown.
//	BoxOfficeGrossPotential – maximum gross if every seat sells.
type ShowDefinition struct {
	ID                      string          `yaml:"id" json:"id" validate:"required"`
	Name                    string          `yaml:"name" json:"name" validate:"required"`
	PerformanceType         PerformanceType `yaml:"performance_type" json:"performanceType,omitempty" validate:"omitempty,oneof=Matinee Evening"`
	PerformanceTime         string          `yaml:"performance_time" json:"performanceTime,omitempty"`
	FirstShowDate           string          `yaml:"first_show_date" json:"firstShowDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	OnSaleDate              string          `yaml:"on_sale_date" json:"onSaleDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TicketsAvailable        int64           `yaml:"tickets_available" json:"ticketsAvailable" validate:"gte=0"`
	BoxOfficeGrossPotential float64         `yaml:"box_office_gross_potential" json:"boxOfficeGrossPotential" validate:"gte=0"`
}

// Matches reports whether the definition covers the given event and type.
// Names compare case-insensitively after trimming.
func (s ShowDefinition) Matches(eventName string, pt PerformanceType) bool {
	if !strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(eventName)) {
		return false
	}
	return s.PerformanceType == "" || s.PerformanceType == pt
}
