package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/config"
	"github.com/blackmichael/reddit-analytics/internal/dashboard"
	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/retry"
)

const (
	defaultAPILimit = 100
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// Server serves the dashboard, the JSON API and the live analysis stream.
type Server struct {
	cfg        *config.Config
	analyzer   *analysis.Service
	logger     *slog.Logger
	httpServer *http.Server
	handler    http.Handler
}

// NewServer creates a new HTTP server backed by the given analysis service.
func NewServer(cfg *config.Config, analyzer *analysis.Service, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/subreddits/{name}", s.handleAnalyzeSubreddit)
	mux.HandleFunc("GET /api/submissions/{id}/comments", s.handleAnalyzeComments)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /ws/analyze", s.handleAnalyzeWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	s.handler = withLogging(logger, mux)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.handler,
		ReadTimeout: 10 * time.Second,
		// Collections wait out rate limits inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"transformer": s.analyzer.ClassifierEnabled(),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	q := r.URL.Query()
	if len(q) == 0 {
		if err := dashboard.Render(w, dashboard.DefaultViewConfig(), nil); err != nil {
			s.logger.Error("failed to render dashboard", "error", err)
		}
		return
	}

	cfg, err := dashboard.ParseViewConfig(q)
	if err != nil {
		s.renderDashboardError(w, dashboard.DefaultViewConfig(), http.StatusBadRequest, err)
		return
	}

	report, err := s.buildReport(r.Context(), cfg)
	if err != nil {
		s.logger.Error("dashboard analysis failed", "subreddit", cfg.Subreddit, "error", err)
		s.renderDashboardError(w, cfg, statusFor(err), err)
		return
	}

	if err := dashboard.Render(w, cfg, report); err != nil {
		s.logger.Error("failed to render dashboard", "error", err)
	}
}

func (s *Server) renderDashboardError(w http.ResponseWriter, cfg dashboard.ViewConfig, status int, err error) {
	w.WriteHeader(status)
	if rerr := dashboard.RenderError(w, cfg, err.Error()); rerr != nil {
		s.logger.Error("failed to render dashboard", "error", rerr)
	}
}

// buildReport collects and scores the listing cfg describes, or synthesizes
// sample rows when cfg.Sample is set.
func (s *Server) buildReport(ctx context.Context, cfg dashboard.ViewConfig) (*dashboard.Report, error) {
	var rows []analysis.AnalyzedSubmission
	if cfg.Sample {
		now := time.Now()
		rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(cfg.Limit)))
		rows = dashboard.SampleRows(cfg.Limit, now, rng)
	} else {
		res, err := s.analyzer.AnalyzeSubreddit(ctx, analysis.Request{
			Subreddit: cfg.Subreddit,
			Query:     cfg.Query(),
			Text:      analysis.TextTitle,
		})
		if err != nil {
			return nil, err
		}
		rows = res.Rows
	}
	report := dashboard.BuildReport(cfg, rows)
	return &report, nil
}

func (s *Server) handleAnalyzeSubreddit(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	q := r.URL.Query()

	limit := defaultAPILimit
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be a number")
			return
		}
		limit = parsed
	}

	sort := q.Get("sort")
	if sort == "" {
		sort = string(domain.SortHot)
	}
	query, err := domain.NewListingQuery(sort, limit, q.Get("time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	text, err := analysis.ParseTextColumn(q.Get("text"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	transformer, err := boolParam(q.Get("transformer"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "transformer must be a boolean")
		return
	}

	res, err := s.analyzer.AnalyzeSubreddit(r.Context(), analysis.Request{
		Subreddit:   name,
		Query:       query,
		Text:        text,
		Transformer: transformer,
	})
	if err != nil {
		s.logger.Error("failed to analyze subreddit", "subreddit", name, "sort", query.Sort, "limit", query.Limit, "error", err)
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeComments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()

	var maxDepth *int
	if d := q.Get("max_depth"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "max_depth must be a non-negative integer")
			return
		}
		maxDepth = &parsed
	}

	transformer, err := boolParam(q.Get("transformer"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "transformer must be a boolean")
		return
	}

	res, err := s.analyzer.AnalyzeComments(r.Context(), id, maxDepth, transformer)
	if err != nil {
		s.logger.Error("failed to analyze comments", "submission_id", id, "error", err)
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > maxRunLimit {
			writeError(w, http.StatusBadRequest, "InvalidRequest", fmt.Sprintf("limit must be between 1 and %d", maxRunLimit))
			return
		}
		limit = parsed
	}

	runs, err := s.analyzer.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.analyzer.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	writeError(w, status, errorType(status), err.Error())
}

// statusFor maps a collection or analysis error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSortMode),
		errors.Is(err, domain.ErrInvalidTimeWindow),
		errors.Is(err, domain.ErrInvalidLimit),
		errors.Is(err, analysis.ErrInvalidTextColumn),
		errors.Is(err, dashboard.ErrInvalidView):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, retry.ErrRetriesExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, analysis.ErrClassifierUnavailable),
		errors.Is(err, analysis.ErrArchiveDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "InvalidRequest"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusTooManyRequests:
		return "RateLimited"
	case http.StatusNotImplemented:
		return "NotConfigured"
	default:
		return "UpstreamError"
	}
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
