// Package gateway exposes the tool catalogue, the topic resource and the
// research prompt over MCP.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
)

const topicMIMEType = "text/markdown"

// TopicReader serves the research://{topic} resource
type TopicReader interface {
	ReadTopic(ctx context.Context, topic string) (string, error)
}

// Config holds configuration for the MCP server
type Config struct {
	Name         string
	Version      string
	Instructions string
}

// MCPServer wraps the mcp-go server with the gateway catalogue
type MCPServer struct {
	server     *server.MCPServer
	dispatcher *tools.Dispatcher
	topics     TopicReader
	logger     *slog.Logger
}

// NewMCPServer creates and configures a new MCP server. topics may be nil,
// in which case the topic resource is not offered.
func NewMCPServer(cfg Config, dispatcher *tools.Dispatcher, topics TopicReader, logger *slog.Logger) *MCPServer {
	if cfg.Name == "" {
		cfg.Name = config.ServerName
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	}
	if cfg.Instructions != "" {
		opts = append(opts, server.WithInstructions(cfg.Instructions))
	}

	ms := &MCPServer{
		server:     server.NewMCPServer(cfg.Name, cfg.Version, opts...),
		dispatcher: dispatcher,
		topics:     topics,
		logger:     logger,
	}

	ms.registerTools()
	ms.registerResources()
	ms.registerPrompts()

	return ms
}

// Server returns the underlying mcp-go server
func (ms *MCPServer) Server() *server.MCPServer {
	return ms.server
}

func (ms *MCPServer) registerTools() {
	ms.server.AddTools(ms.dispatcher.ServerTools()...)
}

func (ms *MCPServer) registerResources() {
	if ms.topics == nil {
		return
	}
	template := mcp.NewResourceTemplate(
		config.ResourceTopicTemplate,
		"Research context",
		mcp.WithTemplateDescription("Research context with sources for a topic, served from cache when available"),
		mcp.WithTemplateMIMEType(topicMIMEType),
	)
	ms.server.AddResourceTemplate(template, ms.handleTopic)
}

func (ms *MCPServer) registerPrompts() {
	prompt := mcp.NewPrompt(config.PromptResearchQuery,
		mcp.WithPromptDescription("Create a research query prompt"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("The topic to research"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("The goal or specific question to answer"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("report_format",
			mcp.ArgumentDescription("The format of the report to generate (default research_report)"),
		),
	)
	ms.server.AddPrompt(prompt, ms.handleResearchPrompt)
}

// handleTopic reads research://{topic}. Research failures are returned as
// the resource text so the client always gets a readable answer.
func (ms *MCPServer) handleTopic(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	topic := topicFromRequest(request)
	if topic == "" {
		return nil, fmt.Errorf("resource %s: topic is empty", request.Params.URI)
	}

	text, err := ms.topics.ReadTopic(ctx, topic)
	if err != nil {
		ms.logger.Error("topic resource failed", "topic", topic, "error", err)
		text = fmt.Sprintf(config.MsgResearchFailed, topic, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: topicMIMEType,
			Text:     text,
		},
	}, nil
}

func (ms *MCPServer) handleResearchPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	topic := strings.TrimSpace(args["topic"])
	goal := strings.TrimSpace(args["goal"])
	if topic == "" {
		return nil, fmt.Errorf(config.ErrMissingArgument, "topic")
	}
	if goal == "" {
		return nil, fmt.Errorf(config.ErrMissingArgument, "goal")
	}

	text := ResearchPrompt(topic, goal, args["report_format"])
	return mcp.NewGetPromptResult(
		"Research instruction for "+topic,
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
	), nil
}

// topicFromRequest prefers the matched template variable and falls back to
// the URI itself.
func topicFromRequest(request mcp.ReadResourceRequest) string {
	switch v := request.Params.Arguments["topic"].(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		return strings.TrimSpace(strings.Join(v, ","))
	}
	return strings.TrimSpace(strings.TrimPrefix(request.Params.URI, config.ResourceTopicScheme))
}
