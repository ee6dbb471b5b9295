package sheet_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mawngo/wellsite/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := sheet.Write(path,
		sheet.Section{
			Name:   "First",
			Header: []string{"id", "value"},
			Rows:   [][]any{{"a", 1.5}, {"b", 10.012492197250394}},
		},
		sheet.Section{
			Name:   "Second",
			Header: []string{"n"},
			Rows:   [][]any{{3}},
		},
	)
	require.NoError(t, err)

	got, err := sheet.Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got["First"]
	require.Len(t, first, 3)
	assert.Equal(t, []string{"id", "value"}, first[0])
	assert.Equal(t, "a", first[1][0])
	v, err := strconv.ParseFloat(first[2][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 10.012492197250394, v, 1e-12)

	assert.Equal(t, [][]string{{"n"}, {"3"}}, got["Second"])
}

func TestWrite_NoSections(t *testing.T) {
	err := sheet.Write(filepath.Join(t.TempDir(), "out.xlsx"))
	assert.ErrorIs(t, err, sheet.ErrNoSections)
}

func TestWrite_UnwritableLeavesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	path := filepath.Join(dir, "out.xlsx")
	err := sheet.Write(path, sheet.Section{Name: "S", Header: []string{"a"}})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestWrite_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, sheet.Write(path, sheet.Section{Name: "S", Header: []string{"a"}, Rows: [][]any{{"x"}}}))

	got, err := sheet.Read(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"x"}}, got["S"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWrite_ReadableMode(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref")
	require.NoError(t, os.WriteFile(ref, nil, 0o666))
	want, err := os.Stat(ref)
	require.NoError(t, err)

	path := filepath.Join(dir, "out.xlsx")
	require.NoError(t, sheet.Write(path, sheet.Section{Name: "S", Header: []string{"a"}}))
	got, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, want.Mode().Perm(), got.Mode().Perm())
}
