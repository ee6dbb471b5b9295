package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mawngo/wellsite/internal/station"
	"github.com/mawngo/wellsite/internal/wells"
	"github.com/paulmach/orb"
	"github.com/phsym/console-slog"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func Init() *slog.LevelVar {
	level := &slog.LevelVar{}
	logger := slog.New(
		console.NewHandler(os.Stderr, &console.HandlerOptions{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	slog.SetDefault(logger)
	cobra.EnableCommandSorting = false
	return level
}

type CLI struct {
	command *cobra.Command
}

// NewCLI create new CLI instance and set up application config.
func NewCLI() *CLI {
	level := Init()

	f := flags{
		Output:   "stations.xlsx",
		Plot:     "stations.png",
		Stations: 2,
		IDCol:    wells.DefaultColumns.ID,
		XCol:     wells.DefaultColumns.X,
		YCol:     wells.DefaultColumns.Y,
		Engine:   station.EngineLloyd,
		Round:    300,
		Runs:     10,
		Title:    "Wells and unified stations",
	}

	command := cobra.Command{
		Use:           "wellsite [flags] <wells.xlsx>",
		Short:         "Group well heads into unified stations and measure well-to-station distances",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}
			if debug {
				level.Set(slog.LevelDebug)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], f)
		},
	}

	command.Flags().StringVarP(&f.Output, "out", "o", f.Output, "Output workbook")
	command.Flags().StringVarP(&f.Plot, "plot", "p", f.Plot, "Scatter plot output, format from extension (png, svg, pdf) [empty=skip]")
	command.Flags().BoolVar(&f.Show, "show", f.Show, "Open the plot with the system viewer")
	command.Flags().BoolVarP(&f.Overwrite, "overwrite", "w", f.Overwrite, "Overwrite output if exists")
	command.Flags().BoolVar(&f.Trace, "trace", f.Trace, "Write a plot per iteration into the working directory (muesli engine)")
	f.register(command.PersistentFlags())
	command.PersistentFlags().Bool("debug", false, "Enable debug mode")
	command.Flags().SortFlags = false
	command.PersistentFlags().SortFlags = false

	command.AddCommand(newServeCommand(&f))
	return &CLI{&command}
}

func run(cmd *cobra.Command, input string, f flags) error {
	now := time.Now()

	for _, path := range []string{f.Output, f.Plot} {
		if err := checkExisting(path, f.Overwrite); err != nil {
			return err
		}
	}

	cfg, err := f.config(input, f.Output, f.Plot, seedFlag(cmd, f))
	if err != nil {
		return err
	}
	cfg.Trace = f.Trace

	p, err := station.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	res, err := p.Run()
	if err != nil {
		var se *station.StageError
		if !errors.As(err, &se) || se.Stage != station.StagePlot {
			return err
		}
		slog.Warn("Plot skipped, results kept", slog.String("out", res.Output))
	}

	for _, s := range res.Stations() {
		slog.Info("Station",
			slog.String("name", s.Name),
			slog.Float64("x", s.Point.X()),
			slog.Float64("y", s.Point.Y()),
			slog.Int("wells", s.Wells))
	}

	if f.Show && res.Plot != "" {
		if err := browser.OpenFile(res.Plot); err != nil {
			slog.Error("Error opening plot",
				slog.String("plot", res.Plot),
				slog.Any("err", err))
		}
	}

	slog.Info("Processing completed", slog.Duration("took", time.Since(now)))
	return nil
}

// checkExisting refuses to replace path unless overwrite is set, and never replaces a directory.
func checkExisting(path string, overwrite bool) error {
	if path == "" {
		return nil
	}
	stats, err := os.Stat(path)
	if err != nil {
		return nil
	}
	slog.Info("File existed",
		slog.Any("path", path),
		slog.Bool("isDir", stats.IsDir()),
		slog.Bool("overwrite", overwrite),
	)
	if !overwrite || stats.IsDir() {
		return fmt.Errorf("output %s already exists", path)
	}
	return nil
}

type flags struct {
	Output    string
	Plot      string
	Show      bool
	Overwrite bool
	Trace     bool

	Stations  int
	Sheet     string
	IDCol     string
	XCol      string
	YCol      string
	Engine    string
	Seed      int64
	Round     int
	Runs      int
	Delta     float64
	Reference []float64
	Title     string
}

// register adds the flags shared by one-shot runs and the server.
func (f *flags) register(fs *pflag.FlagSet) {
	fs.IntVarP(&f.Stations, "stations", "n", f.Stations, "Number of unified stations (k)")
	fs.StringVar(&f.Sheet, "sheet", f.Sheet, "Input sheet [empty=first sheet]")
	fs.StringVar(&f.IDCol, "id-col", f.IDCol, "Header of the well identifier column")
	fs.StringVar(&f.XCol, "x-col", f.XCol, "Header of the x coordinate column")
	fs.StringVar(&f.YCol, "y-col", f.YCol, "Header of the y coordinate column")
	fs.StringVar(&f.Engine, "engine", f.Engine, "K-means implementation [lloyd,muesli]")
	fs.Int64Var(&f.Seed, "seed", f.Seed, "Seed for reproducible clustering (lloyd engine) [unset=random]")
	fs.IntVarP(&f.Round, "round", "i", f.Round, "Maximum number of kmeans iterations (lloyd), or of refinement passes after each partition (muesli)")
	fs.IntVar(&f.Runs, "runs", f.Runs, "Number of kmeans restarts, best inertia wins (both engines)")
	fs.Float64VarP(&f.Delta, "delta", "d", f.Delta, "Stop once at most delta*wells labels change in an iteration")
	fs.Float64SliceVar(&f.Reference, "reference", f.Reference, "Reference point drawn on the plot, as x,y")
	fs.StringVar(&f.Title, "title", f.Title, "Plot title")
}

func (f flags) config(input, output, plot string, seed *int64) (station.Config, error) {
	cfg := station.Config{
		Input:  input,
		Output: output,
		Plot:   plot,
		Sheet:  f.Sheet,
		Columns: wells.Columns{
			ID: f.IDCol,
			X:  f.XCol,
			Y:  f.YCol,
		},
		K:             f.Stations,
		Engine:        f.Engine,
		Seed:          seed,
		MaxIterations: f.Round,
		Runs:          f.Runs,
		Delta:         f.Delta,
		Title:         f.Title,
		XLabel:        "x (m)",
		YLabel:        "y (m)",
	}
	switch len(f.Reference) {
	case 0:
	case 2:
		cfg.Reference = &orb.Point{f.Reference[0], f.Reference[1]}
	default:
		return cfg, fmt.Errorf("--reference needs exactly two values, got %d", len(f.Reference))
	}
	return cfg, nil
}

func seedFlag(cmd *cobra.Command, f flags) *int64 {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	s := f.Seed
	return &s
}

func (cli *CLI) Execute() {
	if err := cli.command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
