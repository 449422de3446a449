// Package api provides HTTP handlers and the main API server logic for TitiNauta.
//
// It exposes the Evolution webhook that delivers inbound WhatsApp messages,
// plus health and session inspection endpoints for operations.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/educareplus/titinauta/internal/messaging"
	"github.com/educareplus/titinauta/internal/session"
)

// Default server configuration constants
const (
	// DefaultAddr is the default API listen address
	DefaultAddr = ":8080"
	// DefaultReadTimeout bounds how long reading a request may take
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds how long writing a response may take.
	// Webhook turns include up to five gateway calls at 10s each.
	DefaultWriteTimeout = 60 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr         string
	WebhookToken string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhookToken sets the shared secret expected on webhook calls.
func WithWebhookToken(token string) Option {
	return func(o *Opts) { o.WebhookToken = token }
}

// Server wires the dialogue engine, session store and messaging service into HTTP endpoints.
type Server struct {
	addr         string
	webhookToken string
	engine       messaging.TurnHandler
	msgService   messaging.Service
	sessions     session.Store
	httpServer   *http.Server
}

// NewServer creates an API server over the given collaborators.
func NewServer(engine messaging.TurnHandler, msgService messaging.Service, sessions session.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	slog.Debug("Creating API server", "addr", cfg.Addr, "webhook_token_set", cfg.WebhookToken != "")
	return &Server{
		addr:         cfg.Addr,
		webhookToken: cfg.WebhookToken,
		engine:       engine,
		msgService:   msgService,
		sessions:     sessions,
	}
}

// Handler builds the HTTP mux for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/evolution", s.webhookHandler)
	mux.HandleFunc("/sessions/{phone}", s.sessionHandler)
	mux.HandleFunc("/messages", s.messagesHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	slog.Info("TitiNauta API listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
