// Package excel reads observation tables from XLSX workbooks and writes
// result tables into one.
package excel

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"goregime/adapters/tabular"
)

// DefaultSheet is the sheet excelize creates in a new workbook
const DefaultSheet = "Sheet1"

// DataReader reads one worksheet of an XLSX file
type DataReader struct {
	filePath string
	sheet    string
}

// NewDataReader creates a reader for sheet; an empty sheet means the first one
func NewDataReader(filePath, sheet string) *DataReader {
	return &DataReader{filePath: filePath, sheet: sheet}
}

// ReadSheet reads the worksheet into a tabular.Sheet
func (r *DataReader) ReadSheet() (*tabular.Sheet, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, fmt.Errorf("XLSX file not found: %s: %w", r.filePath, err)
	}

	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s must have at least a header row and one data row", sheet)
	}
	return tabular.NewSheet(r.filePath, rows)
}
