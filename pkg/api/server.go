// Package api serves the scheduler over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/core/model"
	"github.com/jakechorley/oncall-rota/pkg/core/services"
	"github.com/jakechorley/oncall-rota/pkg/db"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
)

// Store is the persistence the server needs
type Store interface {
	db.ScheduleStore
	Ping(ctx context.Context) error
}

// Server holds the dependencies of the HTTP handlers
type Server struct {
	store    Store
	cfg      *config.Config
	logger   *zap.Logger
	recorder metrics.Recorder
	gatherer prometheus.Gatherer
}

// NewServer creates a server. recorder defaults to a no-op recorder and gatherer to the
// default Prometheus registry.
func NewServer(store Store, cfg *config.Config, logger *zap.Logger, recorder metrics.Recorder, gatherer prometheus.Gatherer) *Server {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		gatherer: gatherer,
	}
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/schedules", s.GenerateSchedule)
		api.GET("/schedules", s.ListSchedules)
		api.GET("/schedules/:id", s.ViewSchedule)
		api.PUT("/schedules/:id/days/:day", s.EditScheduleDay)
		api.POST("/stats", s.RecomputeStats)
	}

	return r
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Health reports whether the database is reachable
func (s *Server) Health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GenerateSchedule handles POST /api/schedules?dryRun=true
func (s *Server) GenerateSchedule(c *gin.Context) {
	var req model.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dryRun, err := queryBool(c, "dryRun")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := services.GenerateSchedule(c.Request.Context(), s.store, s.cfg, s.logger, s.recorder, &req, services.GenerateOptions{DryRun: dryRun})
	if err != nil {
		s.writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.Saved {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"id":      result.ScheduleID,
		"saved":   result.Saved,
		"outcome": result.Outcome,
	})
}

// ListSchedules handles GET /api/schedules
func (s *Server) ListSchedules(c *gin.Context) {
	schedules, err := services.ListSchedules(c.Request.Context(), s.store, s.logger)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if schedules == nil {
		schedules = []db.Schedule{}
	}
	c.JSON(http.StatusOK, schedules)
}

// ViewSchedule handles GET /api/schedules/:id; the id "latest" selects the newest schedule
func (s *Server) ViewSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "latest" {
		id = ""
	}

	view, err := services.ViewSchedule(c.Request.Context(), s.store, s.logger, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EditScheduleDay handles PUT /api/schedules/:id/days/:day
func (s *Server) EditScheduleDay(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be a number"})
		return
	}

	var edit services.DayEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	edit.Day = day

	view, err := services.EditScheduleDay(c.Request.Context(), s.store, s.logger, c.Param("id"), edit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// statsRequest is the body of POST /api/stats
type statsRequest struct {
	Request  model.ScheduleRequest `json:"request"`
	Calendar allocator.Calendar    `json:"calendar"`
}

// RecomputeStats handles POST /api/stats for a calendar held by the caller
func (s *Server) RecomputeStats(c *gin.Context) {
	var body statsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var holidayRules []string
	if s.cfg != nil {
		holidayRules = s.cfg.HolidayRRules()
	}

	result, err := services.RecomputeStats(&body.Request, body.Calendar, holidayRules)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeError maps service errors to HTTP status codes
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, allocator.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, allocator.ErrInfeasible):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(name + " must be true or false")
	}
	return v, nil
}
