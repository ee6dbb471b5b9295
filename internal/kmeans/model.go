package kmeans

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrInvalidK     = errors.New("kmeans: k must be at least 1")
	ErrEmptyDataset = errors.New("kmeans: empty dataset")
	ErrTooFewPoints = errors.New("kmeans: k exceeds the number of points")
	ErrDimension    = errors.New("kmeans: points have mismatched dimensions")
)

type Dataset [][]float64

type Trainer struct {
	k             int
	maxIterations int
	runs          int
	distanceFn    DistanceFunc
	delta         float64
	rng           *rand.Rand
}

type TrainerOption func(*Trainer)

type Model struct {
	distanceFn DistanceFunc
	k          int
	data       Dataset
	centroids  Dataset
	mapping    []int
	iter       int
	converged  bool
	inertia    float64
}

// NewTrainer create new Trainer
func NewTrainer(k int, options ...TrainerOption) Trainer {
	t := Trainer{
		k:             k,
		maxIterations: 300,
		runs:          10,
		distanceFn:    EuclideanDistance,
	}
	for i := range options {
		options[i](&t)
	}
	return t
}

func WithDistanceFunc(fn DistanceFunc) TrainerOption {
	return func(t *Trainer) {
		t.distanceFn = fn
	}
}

func WithMaxIterations(i int) TrainerOption {
	return func(t *Trainer) {
		t.maxIterations = i
	}
}

// WithDeltaThreshold stops a run early once no more than delta*N labels change in one pass.
func WithDeltaThreshold(delta float64) TrainerOption {
	return func(t *Trainer) {
		t.delta = delta
	}
}

// WithRuns sets how many independently seeded runs are tried; the lowest inertia wins.
func WithRuns(n int) TrainerOption {
	return func(t *Trainer) {
		t.runs = n
	}
}

// WithSeed makes initialization reproducible.
func WithSeed(seed int64) TrainerOption {
	return func(t *Trainer) {
		t.rng = rand.New(rand.NewSource(seed))
	}
}

func WithRand(rng *rand.Rand) TrainerOption {
	return func(t *Trainer) {
		t.rng = rng
	}
}

// Fit create and train the *Model.
func (t Trainer) Fit(data Dataset) (*Model, error) {
	if t.k < 1 {
		return nil, ErrInvalidK
	}
	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}
	if t.k > len(data) {
		return nil, fmt.Errorf("%w: k=%d, points=%d", ErrTooFewPoints, t.k, len(data))
	}
	l := len(data[0])
	for i := range data {
		if len(data[i]) != l {
			return nil, fmt.Errorf("%w: point %d has %d values, want %d", ErrDimension, i, len(data[i]), l)
		}
	}

	rng := t.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var best *Model
	for range max(1, t.runs) {
		m := t.fit(data, l, rng)
		if best == nil || m.inertia < best.inertia {
			best = m
		}
	}
	return best, nil
}

func (t Trainer) fit(data Dataset, l int, rng *rand.Rand) *Model {
	model := Model{data: data, k: t.k, distanceFn: t.distanceFn}
	model.initializeMean(rng)
	changeThreshold := int(float64(len(data)) * t.delta)

	cb, cn := prepare(t.k, l)
	iter := 0
	for iter < max(1, t.maxIterations) {
		iter++
		changes := 0
		for i := range data {
			n := model.Predict(data[i])
			if model.mapping[i] != n {
				changes++
			}
			model.mapping[i] = n
		}

		// Centroids already are the means of an unchanged assignment.
		if changes == 0 {
			model.converged = true
			break
		}

		for i, n := range model.mapping {
			cb[n]++
			floats.Add(cn[n], data[i])
		}

		for i := 0; i < t.k; i++ {
			// An empty cluster keeps its previous centroid.
			if cb[i] > 0 {
				floats.Scale(1/float64(cb[i]), cn[i])
				copy(model.centroids[i], cn[i])
			}
			cb[i] = 0
			for j := 0; j < l; j++ {
				cn[i][j] = 0
			}
		}

		if changes <= changeThreshold {
			break
		}
	}

	model.iter = iter
	for i, n := range model.mapping {
		model.inertia += EuclideanDistanceSquared(data[i], model.centroids[n])
	}
	return &model
}

func prepare(k int, l int) ([]int, Dataset) {
	cb := make([]int, k)
	cn := make(Dataset, k)
	for i := 0; i < k; i++ {
		cn[i] = make([]float64, l)
	}
	return cb, cn
}

// initializeMean seeds the centroids with k-means++.
func (m *Model) initializeMean(rng *rand.Rand) {
	m.mapping = make([]int, len(m.data))
	for i := range m.mapping {
		m.mapping[i] = -1
	}
	m.centroids = make(Dataset, m.k)
	m.centroids[0] = clone(m.data[rng.Intn(len(m.data))])

	d := make([]float64, len(m.data))
	for i := 1; i < m.k; i++ {
		s := float64(0)
		for j := 0; j < len(m.data); j++ {
			l := m.distanceFn(m.centroids[0], m.data[j])
			for g := 1; g < i; g++ {
				if f := m.distanceFn(m.centroids[g], m.data[j]); f < l {
					l = f
				}
			}

			d[j] = l * l
			s += d[j]
		}

		m.centroids[i] = clone(m.data[pick(rng, d, s)])
	}
}

// pick draws an index with probability proportional to its weight.
// Zero-weight indexes, which sit on an existing centroid, are never drawn unless all weights are zero.
func pick(rng *rand.Rand, weights []float64, sum float64) int {
	if sum <= 0 {
		return rng.Intn(len(weights))
	}

	t := rng.Float64() * sum
	acc, last := float64(0), 0
	for j, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = j
		if acc > t {
			return j
		}
	}
	return last
}

func clone(p []float64) []float64 {
	c := make([]float64, len(p))
	copy(c, p)
	return c
}

// Predict returns number of cluster to which the observation would be assigned.
func (m *Model) Predict(p []float64) int {
	l := 0
	n := m.distanceFn(p, m.centroids[0])
	for i := 1; i < m.k; i++ {
		if d := m.distanceFn(p, m.centroids[i]); d < n {
			n = d
			l = i
		}
	}
	return l
}

// Guesses returns mapping from data point indices to cluster numbers.
func (m *Model) Guesses() []int {
	return m.mapping
}

// Cluster returns cluster at position i.
func (m *Model) Cluster(i int) []float64 {
	return m.centroids[i]
}

// Centroids returns all cluster centers, indexed by cluster number.
func (m *Model) Centroids() Dataset {
	return m.centroids
}

// Iter returns model number of iterations.
func (m *Model) Iter() int {
	return m.iter
}

// Converged reports whether the last pass left every assignment unchanged.
func (m *Model) Converged() bool {
	return m.converged
}

// Inertia returns the sum of squared distances from each point to its centroid.
func (m *Model) Inertia() float64 {
	return m.inertia
}
