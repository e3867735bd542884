package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/pipeline"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool   *db.Pool
	svc    *pipeline.Service
	logger zerolog.Logger
	opts   Options
}

func NewServer(pool *db.Pool, svc *pipeline.Service, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:   pool,
		svc:    svc,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil || s.svc == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("newsdesk api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("newsdesk api server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/windows/:date/cluster", s.handleClusterRun)
	api.POST("/windows/:date/rank", s.handleRankRun)
	api.GET("/windows/:date/candidates", s.handleCandidates)
	api.PUT("/windows/:date/candidates/order", s.handleReorder)
	api.GET("/windows/:date/stats", s.handleWindowStats)
	api.GET("/clusters/:cluster_id", s.handleClusterDetail)
	api.GET("/clusters/:cluster_id/representatives", s.handleRepresentatives)
	api.GET("/articles/:article_id/preview", s.handleArticlePreview)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "newsdesk",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleClusterRun(c echo.Context) error {
	windowDate, ok := s.windowDateParam(c)
	if !ok {
		return nil
	}

	result, err := s.svc.RunCluster(c.Request().Context(), windowDate)
	if err != nil {
		s.logger.Error().Err(err).Str("window_date", c.Param("date")).Msg("clustering run failed")
		return internalError(c, "Clustering run failed")
	}
	return success(c, result)
}

func (s *Server) handleRankRun(c echo.Context) error {
	windowDate, ok := s.windowDateParam(c)
	if !ok {
		return nil
	}

	result, err := s.svc.RunRank(c.Request().Context(), windowDate)
	if err != nil {
		s.logger.Error().Err(err).Str("window_date", c.Param("date")).Msg("ranking run failed")
		return internalError(c, "Ranking run failed")
	}
	return success(c, result)
}

func (s *Server) handleCandidates(c echo.Context) error {
	windowDate, ok := s.windowDateParam(c)
	if !ok {
		return nil
	}

	candidates, err := s.svc.ListCandidates(c.Request().Context(), windowDate)
	if err != nil {
		s.logger.Error().Err(err).Str("window_date", c.Param("date")).Msg("list candidates failed")
		return internalError(c, "Failed to load candidates")
	}
	return success(c, map[string]any{
		"window_date": windowDate.Format("2006-01-02"),
		"items":       candidates,
	})
}

type reorderRequest struct {
	ClusterIDs []int64 `json:"cluster_ids"`
}

func (s *Server) handleReorder(c echo.Context) error {
	windowDate, ok := s.windowDateParam(c)
	if !ok {
		return nil
	}

	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be JSON with a cluster_ids array"})
	}

	err := s.svc.Reorder(c.Request().Context(), windowDate, req.ClusterIDs)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			return failValidation(c, map[string]string{"cluster_ids": verr.Reason})
		}
		s.logger.Error().Err(err).Str("window_date", c.Param("date")).Msg("candidate reorder failed")
		return internalError(c, "Failed to reorder candidates")
	}
	return success(c, map[string]any{
		"window_date": windowDate.Format("2006-01-02"),
		"reordered":   len(req.ClusterIDs),
	})
}

func (s *Server) handleWindowStats(c echo.Context) error {
	windowDate, ok := s.windowDateParam(c)
	if !ok {
		return nil
	}

	windowEnd := windowDate.Add(24 * time.Hour)
	stats, err := s.pool.QueryWindowStats(c.Request().Context(), windowDate, windowDate, windowEnd)
	if err != nil {
		s.logger.Error().Err(err).Str("window_date", c.Param("date")).Msg("query window stats failed")
		return internalError(c, "Failed to load window stats")
	}
	return success(c, stats)
}

func (s *Server) handleClusterDetail(c echo.Context) error {
	clusterID, ok := s.clusterIDParam(c)
	if !ok {
		return nil
	}

	detail, err := s.svc.GetClusterDetail(c.Request().Context(), clusterID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("query cluster detail failed")
		return internalError(c, "Failed to load cluster detail")
	}
	return success(c, detail)
}

func (s *Server) handleRepresentatives(c echo.Context) error {
	clusterID, ok := s.clusterIDParam(c)
	if !ok {
		return nil
	}

	maxCount, err := parsePositiveInt(c.QueryParam("max"), 0, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"max": err.Error()})
	}

	reps, err := s.svc.Representatives(c.Request().Context(), clusterID, maxCount)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("query representatives failed")
		return internalError(c, "Failed to load representatives")
	}
	return success(c, map[string]any{
		"cluster_id": clusterID,
		"items":      reps,
	})
}

func (s *Server) handleArticlePreview(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("article_id"))
	articleID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || articleID <= 0 {
		return failValidation(c, map[string]string{"article_id": "must be a positive integer"})
	}

	maxChars, err := parsePositiveInt(c.QueryParam("max_chars"), 0, 1, 100_000)
	if err != nil {
		return failValidation(c, map[string]string{"max_chars": err.Error()})
	}

	preview, previewErr := s.fetchArticlePreview(c.Request().Context(), articleID, maxChars)
	if previewErr != nil {
		if db.IsNoRows(previewErr) {
			return failNotFound(c, "Article not found")
		}
		var verr *pipeline.ValidationError
		if errors.As(previewErr, &verr) {
			return failValidation(c, map[string]string{"article_id": verr.Reason})
		}
		s.logger.Error().Err(previewErr).Int64("article_id", articleID).Msg("article preview failed")
		return fail(c, http.StatusBadGateway, "Failed to fetch article preview", nil)
	}
	return success(c, preview)
}

func (s *Server) windowDateParam(c echo.Context) (time.Time, bool) {
	windowDate, err := pipeline.ParseWindowDate(strings.TrimSpace(c.Param("date")))
	if err != nil {
		_ = failValidation(c, map[string]string{"date": "must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return windowDate, true
}

func (s *Server) clusterIDParam(c echo.Context) (int64, bool) {
	raw := strings.TrimSpace(c.Param("cluster_id"))
	clusterID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || clusterID <= 0 {
		_ = failValidation(c, map[string]string{"cluster_id": "must be a positive integer"})
		return 0, false
	}
	return clusterID, true
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
