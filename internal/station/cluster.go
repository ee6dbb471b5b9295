package station

import (
	"fmt"
	"math"

	"github.com/mawngo/wellsite/internal/kmeans"
	"github.com/muesli/clusters"
	mkmeans "github.com/muesli/kmeans"
	"github.com/muesli/kmeans/plotter"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	EngineLloyd  = "lloyd"
	EngineMuesli = "muesli"
)

// Clustering assigns each well to a station.
type Clustering struct {
	Centroids  []orb.Point
	Iterations int
	Converged  bool

	// Labels holds one station index in [0, k) per well, in input order.
	Labels []int
}

// Sizes returns the number of wells assigned to each station.
func (c *Clustering) Sizes() []int {
	s := make([]int, len(c.Centroids))
	for _, l := range c.Labels {
		s[l]++
	}
	return s
}

// Clusterer partitions well coordinates into k groups.
type Clusterer interface {
	Cluster(points []orb.Point, k int) (*Clustering, error)
}

// Lloyd runs the in-tree k-means trainer.
type Lloyd struct {
	MaxIterations int
	Delta         float64
	Runs          int
	// Seed pins initialization; nil keeps runs random.
	Seed *int64
}

func (l Lloyd) Cluster(points []orb.Point, k int) (*Clustering, error) {
	data := make(kmeans.Dataset, len(points))
	for i, p := range points {
		data[i] = []float64{p.X(), p.Y()}
	}

	opts := []kmeans.TrainerOption{kmeans.WithDeltaThreshold(l.Delta)}
	if l.MaxIterations > 0 {
		opts = append(opts, kmeans.WithMaxIterations(l.MaxIterations))
	}
	if l.Runs > 0 {
		opts = append(opts, kmeans.WithRuns(l.Runs))
	}
	if l.Seed != nil {
		opts = append(opts, kmeans.WithSeed(*l.Seed))
	}

	m, err := kmeans.NewTrainer(k, opts...).Fit(data)
	if err != nil {
		return nil, err
	}

	c := &Clustering{
		Labels:     append([]int(nil), m.Guesses()...),
		Centroids:  make([]orb.Point, k),
		Iterations: m.Iter(),
		Converged:  m.Converged(),
	}
	for j, ct := range m.Centroids() {
		c.Centroids[j] = orb.Point{ct[0], ct[1]}
	}
	return c, nil
}

// Muesli delegates to github.com/muesli/kmeans. It cannot be seeded.
//
// muesli's centers can lag behind their members, so every partition is followed by assignment and
// recentring passes until no label changes. Of Runs partitions the one with the lowest inertia wins.
type Muesli struct {
	// Delta is muesli's relative change threshold in (0, 1); zero means 0.01.
	Delta float64
	// MaxIterations caps the passes after each partition; zero means 300.
	MaxIterations int
	// Runs is the number of partitions tried; zero means 10.
	Runs int
	// Trace writes a go-chart PNG per iteration into the working directory.
	Trace bool
}

func (m Muesli) Cluster(points []orb.Point, k int) (*Clustering, error) {
	switch {
	case k < 1:
		return nil, kmeans.ErrInvalidK
	case len(points) == 0:
		return nil, kmeans.ErrEmptyDataset
	case k > len(points):
		return nil, fmt.Errorf("%w: k=%d, points=%d", kmeans.ErrTooFewPoints, k, len(points))
	}
	for _, pt := range points {
		if !finite(pt) {
			return nil, fmt.Errorf("%w: %v", ErrNonFinite, pt)
		}
	}

	delta := m.Delta
	if delta <= 0 {
		delta = 0.01
	}
	var p mkmeans.Plotter
	if m.Trace {
		p = plotter.SimplePlotter{}
	}
	km, err := mkmeans.NewWithOptions(delta, p)
	if err != nil {
		return nil, err
	}

	obs := make(clusters.Observations, len(points))
	for i, pt := range points {
		obs[i] = clusters.Coordinates{pt.X(), pt.Y()}
	}

	runs := m.Runs
	if runs <= 0 {
		runs = 10
	}
	var best *Clustering
	bestInertia := math.Inf(1)
	for range runs {
		cc, err := km.Partition(obs, k)
		if err != nil {
			return nil, err
		}
		centroids := make([]orb.Point, k)
		for j, cl := range cc {
			centroids[j] = orb.Point{cl.Center[0], cl.Center[1]}
		}
		c, inertia := settle(points, centroids, m.MaxIterations)
		if best == nil || inertia < bestInertia {
			best, bestInertia = c, inertia
		}
	}
	return best, nil
}

// settle runs Lloyd passes from centroids until an assignment pass changes no label.
// Centroids of stations that end up empty are left where they were.
func settle(points, centroids []orb.Point, maxIterations int) (*Clustering, float64) {
	if maxIterations <= 0 {
		maxIterations = 300
	}
	c := &Clustering{Labels: make([]int, len(points)), Centroids: centroids}
	for i := range c.Labels {
		c.Labels[i] = -1
	}

	for c.Iterations < maxIterations {
		c.Iterations++
		changes := 0
		for i, pt := range points {
			label := nearest(pt, c.Centroids)
			if label != c.Labels[i] {
				c.Labels[i] = label
				changes++
			}
		}
		if changes == 0 {
			c.Converged = true
			break
		}

		sums := make([]orb.Point, len(c.Centroids))
		counts := make([]int, len(c.Centroids))
		for i, pt := range points {
			l := c.Labels[i]
			sums[l][0] += pt[0]
			sums[l][1] += pt[1]
			counts[l]++
		}
		for j, n := range counts {
			if n > 0 {
				c.Centroids[j] = orb.Point{sums[j][0] / float64(n), sums[j][1] / float64(n)}
			}
		}
	}

	inertia := 0.0
	for i, pt := range points {
		inertia += planar.DistanceSquared(pt, c.Centroids[c.Labels[i]])
	}
	return c, inertia
}

// nearest returns the index of the closest centroid, the lowest index on ties.
func nearest(pt orb.Point, centroids []orb.Point) int {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centroids {
		if d := planar.DistanceSquared(pt, c); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// NewClusterer returns the clusterer for engine.
func NewClusterer(engine string, l Lloyd, m Muesli) (Clusterer, error) {
	switch engine {
	case "", EngineLloyd:
		return l, nil
	case EngineMuesli:
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
}
