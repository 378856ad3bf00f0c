// Package server provides the HTTP API for profile management and form filling.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonathan/form-autofill/internal/dom"
	"github.com/jonathan/form-autofill/internal/fetch"
	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/observability"
	"github.com/jonathan/form-autofill/internal/profile"
	"github.com/jonathan/form-autofill/internal/server/ratelimit"
	"github.com/jonathan/form-autofill/internal/store"
	"github.com/jonathan/form-autofill/internal/types"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies, including submitted HTML documents.
const maxBodyBytes = fetch.DefaultMaxBodyBytes

// Filler runs a fill pass against a live page.
type Filler interface {
	FillURL(ctx context.Context, targetURL string, p *types.Profile) (*fill.Report, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       store.Store
	engine      *fill.Engine
	filler      Filler
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger

	allowedOrigins map[string]bool
}

// Config holds server configuration
type Config struct {
	Addr      string
	Store     store.Store
	Engine    *fill.Engine
	Filler    Filler // nil disables POST /fill
	RateLimit *ratelimit.Config
	Logger    *zap.Logger

	// AllowedOrigins lists the browser origins (scheme://host[:port]) allowed to call the
	// API. Requests carrying any other Origin header are refused.
	AllowedOrigins []string
}

// FillRequest is the body of POST /fill.
type FillRequest struct {
	URL string `json:"url"`
}

// FillHTMLRequest is the body of POST /fill/html.
type FillHTMLRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url,omitempty"`
}

// FillResponse reports the outcome of a fill pass.
type FillResponse struct {
	Filled int          `json:"filled"`
	Status string       `json:"status"`
	Report *fill.Report `json:"report,omitempty"`
	HTML   string       `json:"html,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// New creates a new server instance
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = fill.NewEngine(logger)
	}

	s := &Server{
		store:       cfg.Store,
		engine:      engine,
		filler:      cfg.Filler,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		logger:      logger.Named("server"),

		allowedOrigins: make(map[string]bool, len(cfg.AllowedOrigins)),
	}
	for _, origin := range cfg.AllowedOrigins {
		s.allowedOrigins[strings.TrimSuffix(origin, "/")] = true
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Live fills wait on page loads
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withLogging, s.withCORS, s.withRateLimit)

	r.Get("/health", s.handleHealth)
	r.Get("/profile", s.handleGetProfile)
	r.Put("/profile", s.handlePutProfile)
	r.Post("/fill", s.handleFill)
	r.Post("/fill/html", s.handleFillHTML)
	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	s.logger.Info("server stopped")
	return nil
}

// withCORS rejects browser requests from origins outside the allowlist and adds CORS
// headers for allowed ones. Requests without an Origin header (CLI, curl) pass through.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if !s.allowedOrigins[origin] {
				s.logger.Warn("cross-origin request rejected",
					zap.String("origin", origin),
					zap.String("path", r.URL.Path))
				s.errorResponse(w, http.StatusForbidden, "origin not allowed")
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
		}
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// clientID extracts the client identifier from the request: the IP from RemoteAddr.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.logger.Warn("rate limit exceeded", zap.Int("limit", info.Limit))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := profile.Load(r.Context(), s.store)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	p, err := profile.Import(body)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if err := profile.Save(r.Context(), s.store, p); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.logger.Info("profile saved", zap.Int("custom_fields", len(p.CustomFields)))
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.fillResponse(w, nil, "", &ErrValidation{Field: "url", Message: "is required"})
		return
	}
	if s.filler == nil {
		s.fillResponse(w, nil, "", &ErrBrowserUnavailable{})
		return
	}

	p, err := profile.Load(r.Context(), s.store)
	if err != nil {
		s.fillResponse(w, nil, "", err)
		return
	}

	report, err := s.filler.FillURL(r.Context(), req.URL, p)
	s.fillResponse(w, report, "", err)
}

func (s *Server) handleFillHTML(w http.ResponseWriter, r *http.Request) {
	var req FillHTMLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		s.fillResponse(w, nil, "", &ErrValidation{Field: "html", Message: "is required"})
		return
	}

	p, err := profile.Load(r.Context(), s.store)
	if err != nil {
		s.fillResponse(w, nil, "", err)
		return
	}

	doc, err := dom.ParseString(req.HTML, req.URL)
	if err != nil {
		s.fillResponse(w, nil, "", &ErrValidation{Field: "html", Message: err.Error()})
		return
	}

	report, err := s.engine.Fill(r.Context(), doc, p)
	if err != nil {
		s.fillResponse(w, report, "", err)
		return
	}

	html, err := doc.HTML()
	s.fillResponse(w, report, html, err)
}

// fillResponse reports a fill outcome with the same status line the CLI prints.
func (s *Server) fillResponse(w http.ResponseWriter, report *fill.Report, html string, err error) {
	resp := FillResponse{Report: report, HTML: html}
	if report != nil {
		resp.Filled = report.Filled
	}
	resp.Status = observability.FillStatus(resp.Filled, err)

	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		resp.HTML = ""
		status = HTTPStatus(err)
		s.logger.Warn("fill failed", zap.Error(err))
	}
	s.jsonResponse(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
