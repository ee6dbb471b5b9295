package station

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	ErrNoStations = errors.New("no stations")
	ErrNonFinite  = errors.New("non-finite coordinate")
	ErrRowLabels  = errors.New("row label count does not match wells")
)

// Matrix holds the distance from every well (row) to every station (column).
type Matrix struct {
	Rows    []string
	Columns []string
	Values  [][]float64
}

// StationName is the 1-based label of station j.
func StationName(j int) string {
	return fmt.Sprintf("Station %d", j+1)
}

// Distances computes the planar Euclidean distance from each well to each centroid.
func Distances(labels []string, wells, centroids []orb.Point) (*Matrix, error) {
	if len(centroids) == 0 {
		return nil, ErrNoStations
	}
	if len(labels) != len(wells) {
		return nil, fmt.Errorf("%w: %d labels, %d wells", ErrRowLabels, len(labels), len(wells))
	}
	for j, c := range centroids {
		if !finite(c) {
			return nil, fmt.Errorf("%w: %s at %v", ErrNonFinite, StationName(j), c)
		}
	}

	m := &Matrix{
		Rows:    labels,
		Columns: make([]string, len(centroids)),
		Values:  make([][]float64, len(wells)),
	}
	for j := range centroids {
		m.Columns[j] = StationName(j)
	}
	for i, w := range wells {
		if !finite(w) {
			return nil, fmt.Errorf("%w: well %s at %v", ErrNonFinite, labels[i], w)
		}
		row := make([]float64, len(centroids))
		for j, c := range centroids {
			row[j] = planar.Distance(w, c)
		}
		m.Values[i] = row
	}
	return m, nil
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
