package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"goregime/adapters/excel"
	"goregime/adapters/tabular"
	"goregime/domain/run"
	"goregime/internal"
	"goregime/internal/errors"
	"goregime/ports"
)

// Output is one named table produced by a command
type Output struct {
	Name    string // file stem, e.g. "term_party_baseline"
	Header  []string
	Records [][]string
}

// StageRunner persists command outputs: one CSV per table, an optional
// workbook, the run manifest, and the optional result sink.
type StageRunner struct {
	outputDir string
	workbook  bool
	sink      ports.LedgerPort
	logger    *internal.Logger
}

// NewStageRunner creates a new stage runner; sink may be nil
func NewStageRunner(outputDir string, workbook bool, sink ports.LedgerPort, logger *internal.Logger) *StageRunner {
	return &StageRunner{
		outputDir: outputDir,
		workbook:  workbook,
		sink:      sink,
		logger:    logger,
	}
}

// Path returns where a table named name is written
func (r *StageRunner) Path(name string) string {
	return filepath.Join(r.outputDir, name+".csv")
}

// Persist writes outputs and records them on the manifest. CSVs are written
// first; the manifest is written last so its presence marks a complete run.
func (r *StageRunner) Persist(ctx context.Context, m *run.Manifest, outputs []Output) error {
	for _, out := range outputs {
		path := r.Path(out.Name)
		if err := tabular.WriteCSV(path, out.Header, out.Records); err != nil {
			return errors.IOError(path, err)
		}
		m.AddOutput(path)
		r.logger.Info("wrote %s (%d rows)", path, len(out.Records))
	}

	if r.workbook && len(outputs) > 0 {
		path := filepath.Join(r.outputDir, m.Command+".xlsx")
		tables := make([]excel.Table, len(outputs))
		for i, out := range outputs {
			tables[i] = excel.Table{Name: out.Name, Header: out.Header, Records: out.Records}
		}
		if err := excel.WriteWorkbook(path, tables); err != nil {
			return errors.IOError(path, err)
		}
		m.AddOutput(path)
		r.logger.Info("wrote %s", path)
	}

	if err := r.writeManifest(m); err != nil {
		return err
	}

	if r.sink == nil {
		return nil
	}
	if err := r.sink.SaveRun(ctx, m); err != nil {
		return errors.DatabaseError("save run", err)
	}
	for _, out := range outputs {
		if err := r.sink.SaveTable(ctx, m.RunID, out.Name, out.Header, out.Records); err != nil {
			return errors.DatabaseError("save "+out.Name, err)
		}
	}
	r.logger.Debug("stored %d tables for run %s", len(outputs), m.RunID)
	return nil
}

func (r *StageRunner) writeManifest(m *run.Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return errors.IOError(r.outputDir, err)
	}

	path := filepath.Join(r.outputDir, m.Command+"_manifest.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.IOError(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.IOError(path, fmt.Errorf("rename: %w", err))
	}
	return nil
}
