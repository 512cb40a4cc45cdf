package tabular

import (
	"strconv"
	"strings"

	"goregime/domain/core"
	"goregime/domain/observation"
)

// Column aliases accepted in observation tables
var (
	colMetricID = []string{"metric_id"}
	colValue    = []string{"value"}
	colGroup    = []string{"group", "party_abbrev", "flag", "congress_regime"}
	colLabel    = []string{"metric_label"}
	colFamily   = []string{"metric_family"}
	colAggKind  = []string{"agg_kind"}
	colUnits    = []string{"units"}
	colPrimary  = []string{"metric_primary"}
	colBlockKey = []string{"block_key"}
	colStart    = []string{"term_start", "window_start", "start_date"}
	colCluster  = []string{"cluster_key", "term_id", "president"}
	colSubgroup = []string{"subgroup", "president_party"}
	colDays     = []string{"window_days"}
	colWeight   = []string{"weight"}
)

// LoadResult is the parsed table plus rows that were dropped
type LoadResult struct {
	Table      observation.Table
	Skipped    int // rows with a blank or non-numeric value
	NonPrimary int // rows dropped because metric_primary is 0
}

// ParseObservations converts a sheet into an observation table.
//
// metric_id, value and a group column are required. The block key is the
// block_key column, or else the year of the start date. Weight defaults to
// window_days, then 1. Non-primary rows are dropped unless includeNonPrimary.
func ParseObservations(s *Sheet, includeNonPrimary bool) (*LoadResult, error) {
	idCol, err := s.Require(colMetricID...)
	if err != nil {
		return nil, err
	}
	valueCol, err := s.Require(colValue...)
	if err != nil {
		return nil, err
	}
	groupCol, err := s.Require(colGroup...)
	if err != nil {
		return nil, err
	}
	opt := func(names []string) string {
		h, _ := s.Column(names...)
		return h
	}
	labelCol, familyCol, aggCol, unitsCol := opt(colLabel), opt(colFamily), opt(colAggKind), opt(colUnits)
	primaryCol, blockCol, startCol := opt(colPrimary), opt(colBlockKey), opt(colStart)
	clusterCol, subgroupCol, daysCol, weightCol := opt(colCluster), opt(colSubgroup), opt(colDays), opt(colWeight)

	cell := func(r Row, col string) string {
		if col == "" {
			return ""
		}
		return r[col]
	}

	res := &LoadResult{Table: observation.Table{Meta: make(map[core.MetricID]observation.MetricMeta)}}
	for _, r := range s.Rows {
		id, err := core.ParseMetricID(r[idCol])
		if err != nil {
			res.Skipped++
			continue
		}
		value := core.ParseOptFloat(r[valueCol])
		if !value.Valid {
			res.Skipped++
			continue
		}
		primary := true
		if p := core.ParseOptBool(cell(r, primaryCol)); p.Valid {
			primary = p.Value
		}
		if !primary && !includeNonPrimary {
			res.NonPrimary++
			continue
		}

		o := observation.Observation{
			MetricID:   id,
			Value:      value.Value,
			Group:      strings.TrimSpace(r[groupCol]),
			ClusterKey: cell(r, clusterCol),
			Subgroup:   cell(r, subgroupCol),
			Days:       parseDays(cell(r, daysCol)),
			Primary:    primary,
			Weight:     1,
		}
		if start, ok := core.ParseISODate(cell(r, startCol)); ok {
			o.Start = start
			o.BlockKey = core.SomeInt(start.Year())
		}
		if k := core.ParseOptInt(cell(r, blockCol)); k.Valid {
			o.BlockKey = k
		}
		if w := core.ParseOptFloat(cell(r, weightCol)); w.Valid && w.Value > 0 {
			o.Weight = w.Value
		} else if o.Days.Valid && o.Days.Value > 0 {
			o.Weight = float64(o.Days.Value)
		}

		if _, seen := res.Table.Meta[id]; !seen {
			label := cell(r, labelCol)
			if label == "" {
				label = id.String()
			}
			res.Table.Meta[id] = observation.MetricMeta{
				ID:      id,
				Label:   label,
				Family:  cell(r, familyCol),
				AggKind: cell(r, aggCol),
				Units:   cell(r, unitsCol),
			}
		}
		res.Table.Obs = append(res.Table.Obs, o)
	}
	return res, nil
}

// parseDays accepts integer or float day counts
func parseDays(s string) core.OptInt {
	if d := core.ParseOptInt(s); d.Valid {
		return d
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return core.SomeInt(int(f))
	}
	return core.OptInt{}
}
