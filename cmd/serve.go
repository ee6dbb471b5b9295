package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mawngo/wellsite/internal/station"
	"github.com/spf13/cobra"
)

const (
	inputFile  = "input.xlsx"
	resultFile = "result.xlsx"
	plotFile   = "plot.png"
)

func newServeCommand(f *flags) *cobra.Command {
	addr := ":9595"
	data := "runs"

	command := &cobra.Command{
		Use:   "serve",
		Short: "Run clustering for uploaded workbooks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(data, os.ModePerm); err != nil {
				return fmt.Errorf("creating data directory %s: %w", data, err)
			}
			gin.SetMode(gin.ReleaseMode)
			s := &server{dir: data, defaults: *f, seed: seedFlag(cmd, *f), logger: slog.Default()}
			slog.Info("Serving", slog.String("addr", addr), slog.String("data", data))
			return s.routes().Run(addr)
		},
	}
	command.Flags().StringVar(&addr, "addr", addr, "Listen address")
	command.Flags().StringVar(&data, "data", data, "Directory holding one sub directory per run")
	return command
}

type server struct {
	dir      string
	defaults flags
	seed     *int64
	logger   *slog.Logger
}

type stationResponse struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Wells int     `json:"wells"`
}

type runResponse struct {
	ID         string            `json:"id"`
	Wells      int               `json:"wells"`
	Stations   []stationResponse `json:"stations"`
	Iterations int               `json:"iterations"`
	Converged  bool              `json:"converged"`
	Result     string            `json:"result"`
	Plot       string            `json:"plot,omitempty"`
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	{
		api.POST("/runs", s.createRun)
		api.GET("/runs/:id/"+resultFile, s.download(resultFile))
		api.GET("/runs/:id/"+plotFile, s.download(plotFile))
	}
	return r
}

func (s *server) createRun(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f := s.defaults
	seed := s.seed
	if v := c.PostForm("k"); v != "" {
		if f.Stations, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer"})
			return
		}
	}
	if v := c.PostForm("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an integer"})
			return
		}
		seed = &n
	}
	if v := c.PostForm("engine"); v != "" {
		f.Engine = v
	}
	if v := c.PostForm("sheet"); v != "" {
		f.Sheet = v
	}

	id := uuid.New().String()
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		s.logger.Error("Error creating run directory", slog.String("dir", dir), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create run"})
		return
	}
	input := filepath.Join(dir, inputFile)
	if err := c.SaveUploadedFile(file, input); err != nil {
		_ = os.RemoveAll(dir)
		s.logger.Error("Error saving upload", slog.String("file", file.Filename), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}

	cfg, err := f.config(input, filepath.Join(dir, resultFile), filepath.Join(dir, plotFile), seed)
	if err != nil {
		_ = os.RemoveAll(dir)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger := s.logger.With(slog.String("run", id))
	p, err := station.New(cfg, logger)
	if err != nil {
		_ = os.RemoveAll(dir)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := p.Run()
	if err != nil {
		var se *station.StageError
		if !errors.As(err, &se) || se.Stage != station.StagePlot {
			_ = os.RemoveAll(dir)
			status := http.StatusUnprocessableEntity
			if se != nil && se.Stage == station.StageWrite {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}

	resp := runResponse{
		ID:         id,
		Wells:      len(res.Table.Wells),
		Iterations: res.Clustering.Iterations,
		Converged:  res.Clustering.Converged,
		Result:     "/api/runs/" + id + "/" + resultFile,
	}
	if res.Plot != "" {
		resp.Plot = "/api/runs/" + id + "/" + plotFile
	}
	for _, st := range res.Stations() {
		resp.Stations = append(resp.Stations, stationResponse{
			Name:  st.Name,
			X:     st.Point.X(),
			Y:     st.Point.Y(),
			Wells: st.Wells,
		})
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *server) download(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if u, err := uuid.Parse(id); err != nil || u.String() != id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		path := filepath.Join(s.dir, id, name)
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.FileAttachment(path, name)
	}
}
