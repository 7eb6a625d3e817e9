package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend/blobstore"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/caselaw"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/gemini"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/rag"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/research"
	"github.com/AltairaLabs/legalhub-mcp/internal/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway"
	gwconfig "github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/observability"
	"github.com/AltairaLabs/legalhub-mcp/internal/registry"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
	caselawhandler "github.com/AltairaLabs/legalhub-mcp/internal/tools/handlers/caselaw"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools/handlers/filestore"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools/handlers/health"
	researchhandler "github.com/AltairaLabs/legalhub-mcp/internal/tools/handlers/research"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools/handlers/storage"
	"github.com/AltairaLabs/legalhub-mcp/internal/workpool"
)

// app owns every long-lived component of a running gateway
type app struct {
	pool       *workpool.Pool
	blobs      *blobstore.Client
	sessions   *researchhandler.Sessions
	topics     *registry.Topics
	metrics    *observability.Metrics
	dispatcher *tools.Dispatcher
	server     *gateway.MCPServer
}

// buildApp constructs the adapters, registries, pool and MCP server from
// cfg. Backends without credentials are replaced by stand-ins that fail
// their calls as backend_unavailable.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	searcher, ragClient, err := buildGemini(ctx, cfg.Gemini, logger)
	if err != nil {
		return nil, err
	}

	writer := research.NewOpenAIWriter(cfg.Research.OpenAIKey, cfg.Research.OpenAIBaseURL, cfg.Research.Model)
	engine := research.NewEngine(searcher, writer, research.EngineOptions{
		MaxSubQueries: cfg.Research.MaxSubQueries,
		Logger:        logger.With("component", "research"),
	})

	courts := caselaw.New(caselaw.Options{
		BaseURL:   cfg.CourtListener.BaseURL,
		APIKey:    cfg.CourtListener.APIKey,
		Timeout:   cfg.CourtListener.Timeout.Duration(),
		RateLimit: cfg.CourtListener.RateLimit,
		Logger:    logger.With("component", "caselaw"),
	})

	blobs, err := blobstore.NewS3(ctx, blobstore.AWSOptions{
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Endpoint:        cfg.S3.Endpoint,
	}, blobstore.Options{
		DefaultBucket: cfg.S3.DefaultBucket,
		KeyPrefix:     cfg.S3.KeyPrefix,
		Logger:        logger.With("component", "blobstore"),
	})
	if err != nil {
		return nil, err
	}
	if !cfg.S3.StaticCredentials() {
		logger.Info("S3 keys not set, using the default AWS credential chain")
	}

	a := &app{
		blobs: blobs,
		pool: workpool.New(workpool.Config{
			Workers:   cfg.Pool.Workers,
			QueueSize: cfg.Pool.QueueSize,
		}, logger.With("component", "workpool")),
		sessions: registry.NewSessions[*research.Result](registry.SessionOptions{
			TTL:             cfg.Registry.SessionTTL,
			MaxEntries:      cfg.Registry.SessionMaxEntries,
			CleanupInterval: gwconfig.DefaultSessionCleanupInterval,
		}),
		topics: registry.NewTopics(registry.TopicOptions{
			TTL:        cfg.Registry.TopicTTL,
			MaxEntries: cfg.Registry.TopicMaxEntries,
		}),
	}

	opts := tools.Options{
		Pool:   a.pool,
		Logger: logger,
		Tracer: observability.Tracer(),
	}
	if cfg.Server.MetricsEnabled {
		a.metrics = observability.NewMetrics()
		a.metrics.ObservePool(a.pool)
		a.metrics.ObserveRegistry(a.sessions, a.topics)
		opts.Metrics = a.metrics
	}
	a.dispatcher = tools.NewDispatcher(opts)

	researchTools := researchhandler.NewHandler(engine, a.sessions, a.topics, a.pool, logger.With("component", "research_tools"))
	catalogue := [][]tools.Tool{
		researchTools.Tools(),
		caselawhandler.NewHandler(courts).Tools(),
		filestore.NewHandler(ragClient).Tools(),
		{health.Tool()},
		storage.NewHandler(blobs, a.sessions).Tools(),
	}
	for _, group := range catalogue {
		if err := a.dispatcher.Register(group...); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
	}

	a.server = gateway.NewMCPServer(gateway.Config{
		Name:    gwconfig.ServerName,
		Version: version,
	}, a.dispatcher, researchTools, logger)

	return a, nil
}

// buildGemini picks the grounded searcher and the RAG client. Without a
// Google API key the gemini CLI serves search when installed, and file
// search is disabled.
func buildGemini(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (research.Searcher, *rag.Client, error) {
	if cfg.APIKey != "" {
		client, err := gemini.NewClient(ctx, gemini.Options{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
		if err != nil {
			return nil, nil, err
		}
		ragClient := rag.New(client, rag.Options{
			Model:        cfg.Model,
			PollInterval: gwconfig.DefaultUploadPollInterval,
			MaxPoll:      gwconfig.DefaultUploadMaxPoll,
			Logger:       logger.With("component", "rag"),
		})
		return research.NewGeminiSearcher(client, cfg.Model), ragClient, nil
	}

	const reason = "GOOGLE_API_KEY is not set"
	logger.Warn("Gemini API key missing, file search disabled")
	ragClient := rag.Disabled(reason)

	cli, err := research.NewCLISearcher(cfg.CLIPath)
	if err != nil {
		logger.Warn("No web search backend available", "error", err)
		return research.Unavailable{Reason: reason}, ragClient, nil
	}
	logger.Info("Using gemini CLI for web search", "path", cfg.CLIPath)
	return cli, ragClient, nil
}

func (a *app) metricsHandler() http.Handler {
	if a.metrics == nil {
		return nil
	}
	return a.metrics.Handler()
}

// checkBucket logs whether the default report bucket is reachable. An
// unreachable bucket is not fatal.
func (a *app) checkBucket(ctx context.Context, logger *slog.Logger) {
	bucket := a.blobs.DefaultBucket()
	if bucket == "" {
		logger.Info("No default S3 bucket configured")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, gwconfig.DefaultBucketProbeTimeout)
	defer cancel()
	if a.blobs.BucketExists(ctx, bucket) {
		logger.Info("Default S3 bucket reachable", "bucket", bucket)
		return
	}
	logger.Warn("Default S3 bucket not reachable", "bucket", bucket)
}

// Close stops the pool and the registry cleanup loop
func (a *app) Close() {
	a.pool.Close()
	a.sessions.Close()
}
