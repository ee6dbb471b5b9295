package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mawngo/wellsite/internal/sheet"
	"github.com/mawngo/wellsite/internal/station"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWells(t *testing.T, dir string) string {
	t.Helper()
	rows := [][]any{
		{"井号", "横轴坐标x(m)", "纵轴坐标y(m)"},
		{"W1", 0, 0},
		{"W2", 0, 1},
		{"W3", 10, 0},
		{"W4", 10, 1},
	}
	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	path := filepath.Join(dir, "wells.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func execute(args ...string) error {
	cli := NewCLI()
	cli.command.SetArgs(args)
	return cli.command.Execute()
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := writeWells(t, dir)
	out := filepath.Join(dir, "out.xlsx")
	plot := filepath.Join(dir, "out.png")

	err := execute(input, "-o", out, "-p", plot, "--seed", "3", "--reference", "6631.72,8435.17")
	require.NoError(t, err)
	assert.FileExists(t, plot)

	got, err := sheet.Read(out)
	require.NoError(t, err)
	assert.Contains(t, got, station.SheetOriginal)
	assert.Contains(t, got, station.SheetStations)
	assert.Len(t, got[station.SheetDistances], 5)
	assert.Len(t, got[station.SheetDistances][0], 3)
}

func TestRun_MissingInputLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.xlsx")

	err := execute(filepath.Join(dir, "missing.xlsx"), "-o", out, "-p", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, out)
}

func TestRun_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	input := writeWells(t, dir)
	out := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.WriteFile(out, []byte("keep"), 0o644))

	require.Error(t, execute(input, "-o", out, "-p", ""))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(b))

	require.NoError(t, execute(input, "-o", out, "-p", "", "-w", "-n", "4"))
	got, err := sheet.Read(out)
	require.NoError(t, err)
	assert.Len(t, got[station.SheetStations], 5)
}

func TestRun_BadReference(t *testing.T) {
	dir := t.TempDir()
	input := writeWells(t, dir)
	err := execute(input, "-o", filepath.Join(dir, "out.xlsx"), "--reference", "1,2,3")
	assert.ErrorContains(t, err, "--reference")
}

func TestRun_TooManyStations(t *testing.T) {
	dir := t.TempDir()
	input := writeWells(t, dir)
	out := filepath.Join(dir, "out.xlsx")
	err := execute(input, "-o", out, "-n", "9")

	var se *station.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, station.StageCluster, se.Stage)
	assert.NoFileExists(t, out)
}

func TestRun_RefusesToOverwritePlot(t *testing.T) {
	dir := t.TempDir()
	input := writeWells(t, dir)
	out := filepath.Join(dir, "out.xlsx")
	plot := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(plot, []byte("keep"), 0o644))

	require.Error(t, execute(input, "-o", out, "-p", plot))
	assert.NoFileExists(t, out)
	b, err := os.ReadFile(plot)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(b))

	require.NoError(t, execute(input, "-o", out, "-p", plot, "-w"))
	assert.FileExists(t, out)
	b, err = os.ReadFile(plot)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(b[:4]))
}
