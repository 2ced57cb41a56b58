package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed static/*
var staticFS embed.FS

var _ interfaces.IDataExchanger = (*FastAPIServer)(nil)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config    *models.MConfig
	Service   interfaces.IChartService
	Resolver  *Resolver
	Scheduler *utils.MarketScheduler
	Logger    *logger.Logger
	engine    *gin.Engine
	server    *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, service interfaces.IChartService, catalog []models.MTicker, scheduler *utils.MarketScheduler, log *logger.Logger) *FastAPIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Service: service,
		Resolver: &Resolver{
			Chart:     cfg.Chart,
			Interval:  cfg.DataSource.Interval,
			Catalog:   catalog,
			Scheduler: scheduler,
		},
		Scheduler:  scheduler,
		Logger:     log,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://127.0.0.1", "http://localhost"},
		AllowOriginFunc:  allowLocalOrigin,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With", "Upgrade", "Connection"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// setup web routes
	s.setupRoutes()
	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------

// allowLocalOrigin accepts loopback origins on any port.
func allowLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:")
}

// -----------------------------------------------------------------------------

// requestLogger tags each request with an id and logs it once done.
func (s *FastAPIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Writer.Header().Set("X-Request-ID", id)
		started := time.Now()

		c.Next()

		s.Logger.With("request_id", id).Debug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(started).Round(time.Millisecond))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// Dashboard page
	s.engine.GET("/", s.getIndex)

	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/tickers", s.getTickers)
	s.engine.GET("/api/raindrop", s.getRaindrop)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP until Stop is called.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("Starting server on %s", addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop drains HTTP connections and ends every websocket subscription.
func (s *FastAPIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getIndex(c *gin.Context) {
	page, err := fs.ReadFile(staticFS, "static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "dashboard page missing")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": connections,
		"sources":     s.Service.Sources(),
		"time":        time.Now().UTC(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	chart := s.Config.Chart
	c.JSON(http.StatusOK, gin.H{
		"default_bin_minutes": chart.DefaultBinMinutes,
		"min_bin_minutes":     chart.MinBinMinutes,
		"max_bin_minutes":     chart.MaxBinMinutes,
		"default_margin":      chart.DefaultMargin,
		"interval":            s.Config.DataSource.Interval,
		"refresh_seconds":     chart.RefreshSeconds,
		"refresh_limit":       chart.RefreshLimit,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getTickers(c *gin.Context) {
	catalog := s.Resolver.Catalog
	if catalog == nil {
		catalog = []models.MTicker{}
	}
	c.JSON(http.StatusOK, catalog)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getRaindrop(c *gin.Context) {
	q, err := queryFromValues(c.Query)
	if err != nil {
		s.writeError(c, err)
		return
	}
	req, _, err := s.Resolver.Resolve(q)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp, err := s.Service.BuildChart(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) writeError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("Request %s failed: %v", c.Request.URL.RequestURI(), err)
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  helpers.ErrorKind(err),
	})
}

// Websocket handling lives in hub.go
