package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/legalhub-mcp/internal/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway"
	gwconfig "github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/observability"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var (
	envFile string
	debug   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "legalhub",
		Short: "Legal research MCP gateway",
		Long: `legalhub serves legal research tools over the Model Context Protocol.

It fronts web research, CourtListener case law, Gemini file search and S3
report storage behind one tool catalogue. Configuration comes from the
environment, optionally seeded from a .env file.`,
		SilenceUsage: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on the configured transport",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	serve.Flags().StringVar(&envFile, "env", "", "Path to a .env file (default ./.env when present)")
	serve.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", gwconfig.ServerName, version)
		},
	}

	root.AddCommand(serve, versionCmd)
	return root
}

func newLogger(level slog.Level) *slog.Logger {
	// stderr only: stdout carries the stdio transport
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		newLogger(slog.LevelInfo).Error("Invalid configuration", "error", err)
		return err
	}

	level := cfg.Server.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	logger.Info("Starting legal research gateway",
		"version", version,
		"transport", cfg.Server.Transport,
		"address", cfg.Server.Addr(),
		"grpc_health_port", cfg.Server.GRPCHealthPort,
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingOptions{
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	app.checkBucket(ctx, logger)

	logger.Info("MCP Server initialized",
		"name", gwconfig.ServerName,
		"version", version,
		"tools", len(app.dispatcher.Tools()),
	)

	if cfg.Server.GRPCHealthPort > 0 {
		stopHealth, err := startHealthService(ctx, cfg.Server.GRPCHealthPort, logger)
		if err != nil {
			return err
		}
		defer stopHealth()
	}

	if cfg.Server.Transport == config.TransportStdio {
		err = app.server.ServeStdio(ctx, os.Stdin, os.Stdout)
	} else {
		err = app.server.ListenAndServe(ctx, cfg.Server.Addr(), gateway.HTTPOptions{
			Transport: cfg.Server.Transport,
			Metrics:   app.metricsHandler(),
		})
	}
	if err != nil {
		logger.Error("MCP server error", "error", err)
		return err
	}

	logger.Info("Shutting down gracefully")
	return nil
}

func startHealthService(ctx context.Context, port int, logger *slog.Logger) (func(), error) {
	listenConfig := net.ListenConfig{}
	lis, err := listenConfig.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	svc := gateway.NewHealthService(logger)
	go func() {
		if err := svc.Serve(lis); err != nil {
			logger.Error("gRPC health service error", "error", err)
		}
	}()
	return func() { svc.Stop(gwconfig.DefaultGRPCStopTimeout) }, nil
}
