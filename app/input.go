package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"goregime/adapters/excel"
	"goregime/adapters/tabular"
	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/internal"
	"goregime/internal/errors"
)

// Input is a loaded observation table and the hash of the file it came from
type Input struct {
	Path   string
	Hash   core.Hash
	Groups []observation.MetricGroup
}

// LoadInput reads a .csv, .xlsx or .xlsm observation table and groups it by
// metric
func LoadInput(path string, includeNonPrimary bool, logger *internal.Logger) (*Input, error) {
	if path == "" {
		return nil, errors.InvalidInput("no input table configured")
	}

	var sheet *tabular.Sheet
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		sheet, err = excel.NewDataReader(path, "").ReadSheet()
	case ".csv":
		sheet, err = tabular.ReadCSV(path)
	default:
		return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrUnsupportedFormat, fmt.Sprintf("cannot read %q from %s", ext, path))
	}
	if err != nil {
		return nil, errors.IOError(path, err)
	}

	loaded, err := tabular.ParseObservations(sheet, includeNonPrimary)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "failed to parse "+path)
	}
	if loaded.Skipped > 0 || loaded.NonPrimary > 0 {
		logger.Debug("%s: skipped %d blank rows, %d non-primary rows", path, loaded.Skipped, loaded.NonPrimary)
	}

	hash, err := core.HashFile(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}

	groups := observation.GroupByMetric(loaded.Table)
	logger.Info("loaded %s: %d observations, %d metrics", path, len(loaded.Table.Obs), len(groups))
	return &Input{Path: path, Hash: hash, Groups: groups}, nil
}

// minDays drops windows shorter than minDays, and windows of unknown length
// when minDays > 0
func minDays(groups []observation.MetricGroup, days int) []observation.MetricGroup {
	if days <= 0 {
		return groups
	}
	out := make([]observation.MetricGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Filter(func(o observation.Observation) bool {
			return o.Days.Valid && o.Days.Value >= days
		})
	}
	return out
}
