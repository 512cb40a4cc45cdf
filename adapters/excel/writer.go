package excel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Table is one worksheet of a result workbook
type Table struct {
	Name    string // sheet name, at most 31 characters
	Header  []string
	Records [][]string
}

// WriteWorkbook writes each table to its own sheet, in order, and saves the
// workbook to path through a temp file and rename.
func WriteWorkbook(path string, tables []Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("workbook %s: no tables", path)
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(DefaultSheet, t.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return err
		}
		if err := writeRow(f, t.Name, 1, t.Header); err != nil {
			return err
		}
		for r, rec := range t.Records {
			if err := writeRow(f, t.Name, r+2, rec); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// SaveAs checks the extension, so the temp name keeps it
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return f.SetSheetRow(sheet, cell, &vals)
}
