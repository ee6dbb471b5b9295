// Package station groups wells into unified stations and records how far every well is from every station.
//
// A Pipeline runs load, cluster, distance, write and plot in that order. Each stage takes the previous
// stage's output; a failure stops the run before anything downstream is written, except that a plot
// failure leaves the already written workbook in place.
package station

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mawngo/wellsite/internal/chart"
	"github.com/mawngo/wellsite/internal/sheet"
	"github.com/mawngo/wellsite/internal/wells"
	"github.com/paulmach/orb"
)

var (
	ErrInvalidK      = errors.New("station count must be at least 1")
	ErrNoInput       = errors.New("input path is required")
	ErrNoOutput      = errors.New("output path is required")
	ErrUnknownEngine = errors.New("unknown clustering engine")
)

type Stage string

const (
	StageLoad     Stage = "load"
	StageCluster  Stage = "cluster"
	StageDistance Stage = "distance"
	StageWrite    Stage = "write"
	StagePlot     Stage = "plot"
)

// StageError names the stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Config is everything one run needs.
type Config struct {
	Input   string
	Output  string
	Sheet   string
	Columns wells.Columns

	// Plot is the scatter plot path; empty skips plotting.
	Plot string

	K             int
	Engine        string
	Seed          *int64
	MaxIterations int
	Runs          int
	Delta         float64
	Trace         bool

	Reference *orb.Point
	Title     string
	XLabel    string
	YLabel    string
}

// Validate checks the parameters and that the input file exists.
func (c Config) Validate() error {
	switch {
	case c.K < 1:
		return fmt.Errorf("%w: %d", ErrInvalidK, c.K)
	case c.Input == "":
		return ErrNoInput
	case c.Output == "":
		return ErrNoOutput
	}
	if c.Engine != "" && c.Engine != EngineLloyd && c.Engine != EngineMuesli {
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.Engine)
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("input %s: %w", c.Input, err)
	}
	return nil
}

type Pipeline struct {
	cfg       Config
	clusterer Clusterer
	logger    *slog.Logger
}

// New validates cfg and prepares a pipeline. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		stage := StageLoad
		switch {
		case errors.Is(err, ErrInvalidK), errors.Is(err, ErrUnknownEngine):
			stage = StageCluster
		case errors.Is(err, ErrNoOutput):
			stage = StageWrite
		}
		return nil, &StageError{Stage: stage, Err: err}
	}
	c, err := NewClusterer(cfg.Engine,
		Lloyd{MaxIterations: cfg.MaxIterations, Delta: cfg.Delta, Runs: cfg.Runs, Seed: cfg.Seed},
		Muesli{Delta: cfg.Delta, MaxIterations: cfg.MaxIterations, Runs: cfg.Runs, Trace: cfg.Trace})
	if err != nil {
		return nil, &StageError{Stage: StageCluster, Err: err}
	}
	return &Pipeline{cfg: cfg, clusterer: c, logger: logger}, nil
}

// Result is the output of a run.
type Result struct {
	Table      *wells.Table
	Clustering *Clustering
	Distances  *Matrix

	// Output and Plot are the paths actually written.
	Output string
	Plot   string
}

// Station is a summary of one cluster.
type Station struct {
	Name  string
	Point orb.Point
	Wells int
}

func (r *Result) Stations() []Station {
	sizes := r.Clustering.Sizes()
	out := make([]Station, len(r.Clustering.Centroids))
	for j, c := range r.Clustering.Centroids {
		out[j] = Station{Name: StationName(j), Point: c, Wells: sizes[j]}
	}
	return out
}

// Run executes every stage. On a plot failure the result is returned along with the error.
func (p *Pipeline) Run() (*Result, error) {
	now := time.Now()

	tbl, err := wells.Load(p.cfg.Input, p.cfg.Sheet, p.cfg.Columns)
	if err != nil {
		return nil, p.fail(StageLoad, err)
	}
	p.logger.Info("Loaded wells",
		slog.String("in", p.cfg.Input),
		slog.String("sheet", tbl.Sheet),
		slog.Int("wells", len(tbl.Wells)),
		slog.Bool("ids", tbl.HasID))

	points := tbl.Points()
	p.logger.Debug("Start clustering",
		slog.Int("k", p.cfg.K),
		slog.String("engine", p.engine()),
		slog.Bool("seeded", p.cfg.Seed != nil))
	c, err := p.clusterer.Cluster(points, p.cfg.K)
	if err != nil {
		return nil, p.fail(StageCluster, err)
	}
	p.logger.Info("Clustered wells",
		slog.Int("stations", len(c.Centroids)),
		slog.Any("sizes", c.Sizes()),
		slog.Int("iter", c.Iterations),
		slog.Bool("converged", c.Converged))
	if !c.Converged {
		p.logger.Warn("Clustering stopped before assignments settled", slog.Int("iter", c.Iterations))
	}

	m, err := Distances(tbl.IDs(), points, c.Centroids)
	if err != nil {
		return nil, p.fail(StageDistance, err)
	}

	res := &Result{Table: tbl, Clustering: c, Distances: m}
	if err := sheet.Write(p.cfg.Output, Sections(res)...); err != nil {
		return nil, p.fail(StageWrite, err)
	}
	res.Output = p.cfg.Output
	p.logger.Info("Results saved", slog.String("out", p.cfg.Output))

	if p.cfg.Plot != "" {
		if err := chart.Save(p.cfg.Plot, p.scene(res)); err != nil {
			return res, p.fail(StagePlot, err)
		}
		res.Plot = p.cfg.Plot
		p.logger.Info("Plot saved", slog.String("out", p.cfg.Plot))
	}

	p.logger.Debug("Run completed", slog.Duration("took", time.Since(now)))
	return res, nil
}

func (p *Pipeline) scene(r *Result) chart.Scene {
	return chart.Scene{
		Wells:     r.Table.Points(),
		Labels:    r.Clustering.Labels,
		K:         len(r.Clustering.Centroids),
		Stations:  r.Clustering.Centroids,
		Reference: p.cfg.Reference,
		Title:     p.cfg.Title,
		XLabel:    p.cfg.XLabel,
		YLabel:    p.cfg.YLabel,
	}
}

func (p *Pipeline) engine() string {
	if p.cfg.Engine == "" {
		return EngineLloyd
	}
	return p.cfg.Engine
}

func (p *Pipeline) fail(stage Stage, err error) error {
	p.logger.Error("Stage failed",
		slog.String("stage", string(stage)),
		slog.Any("err", err))
	return &StageError{Stage: stage, Err: err}
}
