// Package server exposes the scene tools as an MCP server over stdio.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/osmterrain/pkg/tools"
)

const (
	// ServerName is the name of the MCP server
	ServerName = "osmterrain"

	// ServerVersion is the version of the MCP server
	ServerVersion = "0.1.0"
)

// Server wraps the MCP server with the scene tools registered.
type Server struct {
	srv          *mcpserver.MCPServer
	registry     *tools.Registry
	logger       *slog.Logger
	stopCh       chan struct{}
	doneCh       chan struct{}
	running      bool
	mu           sync.Mutex
	once         sync.Once // stopCh is closed once
	ctxCancel    context.CancelFunc
	ctxGoroutine sync.Once
}

// NewServer creates an MCP server whose tools build scenes with svc.
func NewServer(svc *tools.SceneService, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("scene service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing MCP server",
		"name", ServerName,
		"version", ServerVersion)

	srv := mcpserver.NewMCPServer(
		ServerName,
		ServerVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	registry := tools.NewRegistry(logger, svc)
	registry.RegisterAll(srv)

	return &Server{
		srv:      srv,
		registry: registry,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Run serves MCP over stdin/stdout and blocks until the server is
// stopped or stdin closes.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.doneCh)
		err := mcpserver.ServeStdio(s.srv)
		if err != nil && err != io.EOF {
			s.logger.Error("server error", "error", err)
		}
		s.Shutdown()
	}()

	<-s.stopCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	<-s.doneCh
	return nil
}

// RunWithContext runs the server until ctx is cancelled.
func (s *Server) RunWithContext(ctx context.Context) error {
	s.ctxGoroutine.Do(func() {
		derived, cancel := context.WithCancel(ctx)
		s.ctxCancel = cancel

		go func() {
			select {
			case <-derived.Done():
				s.Shutdown()
			case <-s.stopCh:
			}
		}()
	})

	return s.Run()
}

// Shutdown initiates a graceful shutdown and returns immediately.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.once.Do(func() {
		close(s.stopCh)
	})

	if s.ctxCancel != nil {
		s.ctxCancel()
	}
}

// WaitForShutdown blocks until the server has fully shut down.
func (s *Server) WaitForShutdown() {
	<-s.doneCh
}

// GetMCPServer returns the underlying MCP server instance
func (s *Server) GetMCPServer() *mcpserver.MCPServer {
	return s.srv
}

// ToolNames lists the registered tools
func (s *Server) ToolNames() []string {
	return s.registry.GetToolNames()
}
