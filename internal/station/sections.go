package station

import (
	"math"
	"slices"
	"strconv"

	"github.com/mawngo/wellsite/internal/sheet"
)

const (
	SheetOriginal  = "Original Data"
	SheetStations  = "Station Coordinates"
	SheetDistances = "Distance Matrix"

	ClusterHeader = "Cluster"
	StationHeader = "Station"
)

// Sections lays out the three result sheets.
func Sections(r *Result) []sheet.Section {
	tbl := r.Table

	// An existing Cluster column is overwritten rather than repeated.
	header := append([]string{}, tbl.Header...)
	labelCol := slices.Index(header, ClusterHeader)
	if labelCol < 0 {
		labelCol = len(header)
		header = append(header, ClusterHeader)
	}
	original := sheet.Section{
		Name:   SheetOriginal,
		Header: header,
		Rows:   make([][]any, len(tbl.Rows)),
	}
	for i, row := range tbl.Rows {
		out := make([]any, len(header))
		for c, v := range row {
			out[c] = cellValue(v, tbl.Numeric[i][c])
		}
		out[labelCol] = r.Clustering.Labels[i]
		original.Rows[i] = out
	}

	stations := sheet.Section{
		Name:   SheetStations,
		Header: []string{StationHeader, tbl.Columns.X, tbl.Columns.Y},
		Rows:   make([][]any, len(r.Clustering.Centroids)),
	}
	for j, c := range r.Clustering.Centroids {
		stations.Rows[j] = []any{StationName(j), c.X(), c.Y()}
	}

	m := r.Distances
	distances := sheet.Section{
		Name:   SheetDistances,
		Header: append([]string{tbl.IDHeader()}, m.Columns...),
		Rows:   make([][]any, len(m.Values)),
	}
	for i, vals := range m.Values {
		out := make([]any, 0, len(vals)+1)
		out = append(out, cellValue(m.Rows[i], tbl.NumericID(i)))
		for _, v := range vals {
			out = append(out, v)
		}
		distances.Rows[i] = out
	}

	return []sheet.Section{original, stations, distances}
}

// cellValue writes cells the workbook stored as numbers back as numbers and everything else verbatim.
func cellValue(s string, numeric bool) any {
	if s == "" {
		return nil
	}
	if !numeric {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return f
}
