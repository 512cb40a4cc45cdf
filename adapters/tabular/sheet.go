// Package tabular reads and writes the CSV tables the engine consumes and
// produces.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"goregime/domain/core"
)

// Row is one data row keyed by trimmed header
type Row map[string]string

// Sheet is a header plus data rows, independent of file format
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// NewSheet builds a Sheet from raw rows whose first row is the header.
// Short rows are padded with blanks; cells past the header are dropped.
func NewSheet(name string, raw [][]string) (*Sheet, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w: no header row", name, core.ErrInsufficientData)
	}
	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	s := &Sheet{Name: name, Headers: headers, Rows: make([]Row, 0, len(raw)-1)}
	for _, rec := range raw[1:] {
		row := make(Row, len(headers))
		for j, h := range headers {
			if j < len(rec) {
				row[h] = strings.TrimSpace(rec[j])
			} else {
				row[h] = ""
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// ReadCSV reads a CSV file into a Sheet named after its path
func ReadCSV(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCSV(path, f)
}

// DecodeCSV reads CSV from r
func DecodeCSV(name string, r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	raw, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return NewSheet(name, raw)
}

// Column returns the first header among names that the sheet has
func (s *Sheet) Column(names ...string) (string, bool) {
	for _, n := range names {
		for _, h := range s.Headers {
			if strings.EqualFold(h, n) {
				return h, true
			}
		}
	}
	return "", false
}

// Require is Column that fails with ErrMissingColumn naming the first alias
func (s *Sheet) Require(names ...string) (string, error) {
	if h, ok := s.Column(names...); ok {
		return h, nil
	}
	return "", core.NewMissingColumnError(s.Name, strings.Join(names, "|"))
}
