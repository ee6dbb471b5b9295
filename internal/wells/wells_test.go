package wells_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mawngo/wellsite/internal/wells"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	path := filepath.Join(t.TempDir(), "wells.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_DefaultColumns(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"井号", "横轴坐标x(m)", "纵轴坐标y(m)", "备注"},
		{"W-1", 0, 0, "a"},
		{"W-2", 0, 1.5, ""},
		{},
		{"W-3", 10, 0, "c"},
	})

	tbl, err := wells.Load(path, "", wells.DefaultColumns)
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", tbl.Sheet)
	assert.True(t, tbl.HasID)
	assert.Equal(t, []string{"井号", "横轴坐标x(m)", "纵轴坐标y(m)", "备注"}, tbl.Header)
	assert.Equal(t, []string{"W-1", "W-2", "W-3"}, tbl.IDs())
	assert.Equal(t, []orb.Point{{0, 0}, {0, 1.5}, {10, 0}}, tbl.Points())
	assert.Equal(t, "井号", tbl.IDHeader())
	require.Len(t, tbl.Rows, 3)
	assert.Len(t, tbl.Rows[1], 4)
}

func TestLoad_NoIDColumnUsesPosition(t *testing.T) {
	path := writeWorkbook(t, "coords", [][]any{
		{"x", "y"},
		{1, 2},
		{3, 4},
	})

	tbl, err := wells.Load(path, "coords", wells.Columns{ID: "name", X: "x", Y: "y"})
	require.NoError(t, err)
	assert.False(t, tbl.HasID)
	assert.Equal(t, []string{"0", "1"}, tbl.IDs())
	assert.Equal(t, "Index", tbl.IDHeader())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := wells.Load(filepath.Join(t.TempDir(), "nope.xlsx"), "", wells.DefaultColumns)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeWorkbook(t, "Sheet1", [][]any{{"x", "z"}, {1, 2}})
		_, err := wells.Load(path, "", wells.Columns{X: "x", Y: "y"})
		assert.ErrorIs(t, err, wells.ErrColumnNotFound)
	})

	t.Run("bad coordinate", func(t *testing.T) {
		path := writeWorkbook(t, "Sheet1", [][]any{{"x", "y"}, {1, 2}, {"east", 3}})
		_, err := wells.Load(path, "", wells.Columns{X: "x", Y: "y"})
		require.ErrorIs(t, err, wells.ErrBadCoordinate)
		assert.Contains(t, err.Error(), "row 3")
	})

	t.Run("non-finite coordinate", func(t *testing.T) {
		for _, v := range []string{"NaN", "Inf", "-Infinity", "0x1p3"} {
			path := writeWorkbook(t, "Sheet1", [][]any{{"x", "y"}, {1, 2}, {3, v}})
			_, err := wells.Load(path, "", wells.Columns{X: "x", Y: "y"})
			require.ErrorIs(t, err, wells.ErrBadCoordinate, v)
			assert.Contains(t, err.Error(), "row 3")
		}
	})

	t.Run("no wells", func(t *testing.T) {
		path := writeWorkbook(t, "Sheet1", [][]any{{"x", "y"}})
		_, err := wells.Load(path, "", wells.Columns{X: "x", Y: "y"})
		assert.ErrorIs(t, err, wells.ErrNoWells)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		path := writeWorkbook(t, "Sheet1", [][]any{{"x", "y"}, {1, 2}})
		_, err := wells.Load(path, "missing", wells.Columns{X: "x", Y: "y"})
		assert.Error(t, err)
	})
}

func TestRead(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{{"x", "y"}, {1.25, -2}})
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	tbl, err := wells.Read(bytes.NewReader(b), "", wells.Columns{X: "x", Y: "y"})
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{1.25, -2}}, tbl.Points())
}

func TestLoad_NumericCells(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"井号", "横轴坐标x(m)", "纵轴坐标y(m)", "note"},
		{"1e3", 1.5, 2, "deep"},
		{42, 3, 4, nil},
	})
	tbl, err := wells.Load(path, "", wells.DefaultColumns)
	require.NoError(t, err)

	assert.Equal(t, [][]bool{
		{false, true, true, false},
		{true, true, true, true},
	}, tbl.Numeric)
	assert.False(t, tbl.NumericID(0))
	assert.True(t, tbl.NumericID(1))
	assert.Equal(t, "1e3", tbl.Wells[0].ID)
}
