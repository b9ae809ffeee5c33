package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iliyamo/boxoffice-sales/internal/model"
)

// CSVSource yields the data rows of a CSV export keyed by trimmed header.
// It reads forward only; a new source must be built to read again.
type CSVSource struct {
	reader  *csv.Reader
	headers []string
	row     int
	started bool
}

// NewCSVSource wraps r.  The first record is taken as the header.
func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &CSVSource{reader: cr}
}

// RowError is returned by Next for a data line that is not valid CSV.  The
// source stays usable.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// Headers returns the trimmed header names, nil before the first Next.
func (s *CSVSource) Headers() []string { return s.headers }

// Next returns the 1-based index and contents of the next data row.  It
// returns io.EOF after the last row, including for an empty input.
func (s *CSVSource) Next() (int, model.RawSalesRow, error) {
	if !s.started {
		s.started = true
		hdr, err := s.reader.Read()
		if err != nil {
			return 0, nil, err
		}
		s.headers = make([]string, len(hdr))
		for i, h := range hdr {
			s.headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		}
	}

	rec, err := s.reader.Read()
	if err == io.EOF {
		return 0, nil, io.EOF
	}
	s.row++
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return s.row, nil, &RowError{Row: s.row, Err: err}
		}
		return s.row, nil, err
	}

	row := make(model.RawSalesRow, len(s.headers))
	for i, h := range s.headers {
		if h == "" {
			continue
		}
		if i < len(rec) {
			row[h] = rec[i]
		}
	}
	return s.row, row, nil
}
