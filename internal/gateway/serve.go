package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	appconfig "github.com/AltairaLabs/legalhub-mcp/internal/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools/handlers/health"
)

// mcpBasePath is where both HTTP transports are mounted
const mcpBasePath = "/mcp"

// HTTPOptions configures the HTTP transports
type HTTPOptions struct {
	// Transport is sse or streamable-http
	Transport string
	// BaseURL is advertised to SSE clients; defaults to the listener address
	BaseURL string
	// Metrics is mounted on /metrics when non-nil
	Metrics http.Handler
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// ServeStdio serves MCP over in/out until ctx is cancelled or in is
// exhausted.
func (ms *MCPServer) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ms.logger.Info("Starting MCP server with stdio transport")
	stdio := server.NewStdioServer(ms.server)
	stdio.SetErrorLogger(slog.NewLogLogger(ms.logger.Handler(), slog.LevelError))
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ListenAndServe opens addr and serves the HTTP transport on it
func (ms *MCPServer) ListenAndServe(ctx context.Context, addr string, opts HTTPOptions) error {
	listenConfig := net.ListenConfig{}
	lis, err := listenConfig.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ms.ServeHTTP(ctx, lis, opts)
}

// ServeHTTP serves MCP over SSE or streamable HTTP on lis, next to the
// /health and /metrics routes. It shuts down gracefully when ctx is
// cancelled.
func (ms *MCPServer) ServeHTTP(ctx context.Context, lis net.Listener, opts HTTPOptions) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://" + lis.Addr().String()
	}

	mcpHandler, err := ms.transportHandler(opts)
	if err != nil {
		_ = lis.Close()
		return err
	}

	// streams such as SSE only end when their request context does
	streamCtx, cancelStreams := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelStreams()

	srv := &http.Server{
		Handler:           NewHTTPHandler(mcpHandler, opts.Metrics),
		ReadHeaderTimeout: config.DefaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
		ErrorLog:          slog.NewLogLogger(ms.logger.Handler(), slog.LevelWarn),
	}
	srv.RegisterOnShutdown(cancelStreams)

	ms.logger.Info("Starting MCP server with HTTP transport",
		"transport", opts.Transport,
		"address", lis.Addr().String(),
		"base_path", mcpBasePath,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ms.logger.Info("Shutting down HTTP transport")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		ms.logger.Warn("Graceful shutdown timeout, forcing close", "error", err)
		_ = srv.Close()
	}
	<-errCh
	return nil
}

func (ms *MCPServer) transportHandler(opts HTTPOptions) (http.Handler, error) {
	switch opts.Transport {
	case appconfig.TransportSSE:
		return server.NewSSEServer(ms.server,
			server.WithBaseURL(opts.BaseURL),
			server.WithStaticBasePath(mcpBasePath),
		), nil
	case appconfig.TransportStreamableHTTP:
		return server.NewStreamableHTTPServer(ms.server,
			server.WithEndpointPath(mcpBasePath),
		), nil
	default:
		return nil, fmt.Errorf("unsupported transport: %s", opts.Transport)
	}
}

// NewHTTPHandler routes /health, /metrics and the MCP transport
func NewHTTPHandler(mcpHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	if mcpHandler != nil {
		mux.Handle(mcpBasePath, mcpHandler)
		mux.Handle(mcpBasePath+"/", mcpHandler)
	}
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health.Payload())
}
