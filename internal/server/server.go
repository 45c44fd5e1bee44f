// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes paper analysis over HTTP. Analyses stream back as
// newline-delimited JSON events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pdiddy/smartpaper/internal/acquire"
	"github.com/pdiddy/smartpaper/internal/analyze"
	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/prompt"
	"github.com/pdiddy/smartpaper/pkg/types"
)

// DefaultAddr is used when the configuration names no listen address.
const DefaultAddr = "127.0.0.1:8501"

// Examples are the paper URLs offered to clients as starting points.
var Examples = []string{
	"https://arxiv.org/pdf/2303.08774",
	"https://arxiv.org/pdf/2305.12002",
	"https://arxiv.org/abs/2310.06825",
	"https://arxiv.org/abs/2307.09288",
	"https://arxiv.org/pdf/2312.11805",
}

// Analyzer runs one analysis and reports it through emit.
type Analyzer interface {
	Analyze(ctx context.Context, req analyze.Request, emit func(analyze.Event) error) error
}

// PromptLister lists the prompts of a version.
type PromptLister interface {
	List(version string) ([]prompt.Summary, error)
}

// Server serves the HTTP API.
type Server struct {
	Analyzer Analyzer
	Prompts  PromptLister
	Config   types.ServerConfig
	Logger   *log.Logger
}

// New returns a Server for cfg.
func New(a Analyzer, prompts PromptLister, cfg types.ServerConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{Analyzer: a, Prompts: prompts, Config: cfg, Logger: logger}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Accept", "X-Requested-With"}
	if len(s.Config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = s.Config.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), s.requestLogger(), cors.New(corsConfig))

	r.GET("/api/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/api/examples", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"examples": Examples}) })
	r.GET("/api/prompts", s.PromptsHandler)
	r.POST("/api/analyze", s.AnalyzeHandler)

	return r
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// PromptsHandler lists the prompts of the version named by the version
// query parameter.
func (s *Server) PromptsHandler(c *gin.Context) {
	version := c.Query("version")
	prompts, err := s.Prompts.List(version)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if prompts == nil {
		prompts = []prompt.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"prompts": prompts})
}

// AnalyzeHandler validates an analysis request and streams its events.
func (s *Server) AnalyzeHandler(c *gin.Context) {
	var req analyze.Request
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := acquire.NormalizeArxivURL(req.URL); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := prompt.ParseVersion(req.Version); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Session == "" {
		req.Session = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	ctx = logging.WithLogger(ctx, s.Logger.With("session", req.Session))

	ch := make(chan analyze.Event)
	go func() {
		defer close(ch)
		_ = s.Analyzer.Analyze(ctx, req, func(ev analyze.Event) error {
			select {
			case ch <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	c.Header("X-Session-Id", req.Session)
	streamResponse(c, ch, s.Logger)
}

// streamResponse writes each event as one JSON line until ch closes or
// the client goes away.
func streamResponse(c *gin.Context, ch chan analyze.Event, logger *log.Logger) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-ch
		if !ok {
			return false
		}

		bts, err := json.Marshal(ev)
		if err != nil {
			logger.Error("streamResponse: marshal failed", "err", err)
			return false
		}
		bts = append(bts, '\n')
		if _, err := w.Write(bts); err != nil {
			logger.Info("streamResponse: write failed", "err", err)
			return false
		}
		return true
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
