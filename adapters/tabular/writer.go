package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Recorder is a typed result row that renders itself in header order
type Recorder interface {
	Record() []string
}

// Records renders rows for WriteCSV
func Records[T Recorder](rows []T) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

// WriteCSV writes header and records to path atomically: a temp file in
// the same directory is fully written, synced and renamed over path, so
// readers never observe a partial table.
func WriteCSV(path string, header []string, records [][]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(header); err != nil {
		return err
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return fmt.Errorf("record %d has %d fields, header has %d", i, len(rec), len(header))
		}
		if err = w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
