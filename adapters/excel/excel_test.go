package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"goregime/adapters/tabular"
)

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	tables := []Table{
		{Name: "term_party", Header: []string{"metric_id", "party_abbrev", "value"}, Records: [][]string{{"gdp", "D", "3.1"}, {"gdp", "R", "2.2"}}},
		{Name: "claims", Header: []string{"metric_id", "tier"}, Records: [][]string{{"gdp", "supportive"}}},
	}
	require.NoError(t, WriteWorkbook(path, tables))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"term_party", "claims"}, f.GetSheetList())
	require.NoError(t, f.Close())

	sheet, err := NewDataReader(path, "term_party").ReadSheet()
	require.NoError(t, err)
	assert.Equal(t, []string{"metric_id", "party_abbrev", "value"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, tabular.Row{"metric_id": "gdp", "party_abbrev": "R", "value": "2.2"}, sheet.Rows[1])

	res, err := tabular.ParseObservations(sheet, false)
	require.NoError(t, err)
	assert.Len(t, res.Table.Obs, 2)
}

func TestReadSheet_Errors(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "missing.xlsx"), "").ReadSheet()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "header_only.xlsx")
	require.NoError(t, WriteWorkbook(path, []Table{{Name: DefaultSheet, Header: []string{"metric_id"}}}))
	_, err = NewDataReader(path, "").ReadSheet()
	assert.Error(t, err)

	assert.Error(t, WriteWorkbook(path, nil))
}
