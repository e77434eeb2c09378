// Package httpserver exposes the loaded dataset, its summaries and a
// read-only SQL console over a JSON HTTP API.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

// Config holds the server's listen address and optional basic-auth
// credentials. PasswordHash is a bcrypt hash.
type Config struct {
	Addr         string
	TopN         int
	Parser       *timestamp.Parser
	User         string
	PasswordHash string
}

// Server serves one dataset over HTTP.
type Server struct {
	addr      string
	dataset   *model.Dataset
	store     model.QueryStore
	describer model.Describer
	opts      aggregate.Options
	user      string
	hash      []byte

	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a server for ds. store backs the SQL endpoints and
// describer the event description lookups.
func NewServer(cfg Config, ds *model.Dataset, store model.QueryStore, describer model.Describer) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = model.DefaultAPIAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		dataset:   ds,
		store:     store,
		describer: describer,
		opts:      aggregate.Options{TopN: cfg.TopN, Parser: cfg.Parser},
		user:      cfg.User,
		hash:      []byte(cfg.PasswordHash),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)

	api := r.Group("/api")
	if s.user != "" {
		api.Use(s.basicAuth())
	}
	api.GET("/dataset", s.handleDataset)
	api.GET("/records", s.handleRecords)
	api.GET("/summary", s.handleSummary)
	api.GET("/timeseries", s.handleTimeSeries)
	api.GET("/hours", s.handleHours)
	api.GET("/export.csv", s.handleExport)
	api.GET("/describe/:id", s.handleDescribe)
	api.GET("/schema", s.handleSchema)
	api.POST("/query", s.handleQuery)
	api.GET("/ws", s.handleWS)

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the listen address, resolved once Start has bound it.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
