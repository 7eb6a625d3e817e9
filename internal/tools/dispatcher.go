// Package tools routes MCP tool calls to their handlers. The dispatcher
// validates arguments, runs blocking handlers on the worker pool and wraps
// every outcome in an envelope. It holds no domain state.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
	"github.com/AltairaLabs/legalhub-mcp/internal/envelope"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/workpool"
)

// HandlerFunc handles one validated tool call and returns its payload
type HandlerFunc func(ctx context.Context, args Args) (map[string]any, error)

// Tool is a catalogue entry
type Tool struct {
	Name        string
	Description string
	Params      []Param
	// Blocking handlers run on the worker pool
	Blocking bool
	ReadOnly bool
	Handler  HandlerFunc
}

// MCPTool renders the entry as an MCP tool definition
func (t Tool) MCPTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.Description),
		mcp.WithReadOnlyHintAnnotation(t.ReadOnly),
	}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case TypeInteger, TypeNumber:
			if d, ok := toFloat(p.Default); ok {
				props = append(props, mcp.DefaultNumber(d.(float64)))
			}
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case TypeBoolean:
			if d, ok := p.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(d))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		default:
			if d, ok := p.Default.(string); ok {
				props = append(props, mcp.DefaultString(d))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// Recorder receives one observation per tool call
type Recorder interface {
	RecordToolCall(tool, status, kind string, duration time.Duration)
}

// Options configures a Dispatcher. Nil fields fall back to no-ops, except
// Pool: without one, blocking handlers run on the caller's goroutine.
type Options struct {
	Pool    *workpool.Pool
	Logger  *slog.Logger
	Metrics Recorder
	Tracer  trace.Tracer
}

// Dispatcher maps tool names to catalogue entries
type Dispatcher struct {
	tools   map[string]Tool
	order   []string
	pool    *workpool.Pool
	logger  *slog.Logger
	metrics Recorder
	tracer  trace.Tracer
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Dispatcher{
		tools:   make(map[string]Tool),
		pool:    opts.Pool,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// Register adds tools to the catalogue. Names must be unique.
func (d *Dispatcher) Register(tools ...Tool) error {
	for _, t := range tools {
		if t.Name == "" || t.Handler == nil {
			return fmt.Errorf("tool %q needs a name and a handler", t.Name)
		}
		if _, dup := d.tools[t.Name]; dup {
			return fmt.Errorf("tool %s already registered", t.Name)
		}
		d.tools[t.Name] = t
		d.order = append(d.order, t.Name)
	}
	return nil
}

// Lookup returns the catalogue entry for name
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	t, ok := d.tools[name]
	return t, ok
}

// Tools returns the catalogue in registration order
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name])
	}
	return out
}

// Call validates raw, runs the named tool and wraps the outcome. It never
// returns a raw error and never panics.
func (d *Dispatcher) Call(ctx context.Context, name string, raw map[string]any) envelope.Envelope {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "tool."+name, trace.WithAttributes(attribute.String("mcp.tool", name)))
	defer span.End()

	env := d.call(ctx, name, raw)

	status, kind := envelope.StatusSuccess, ""
	f := env.Failure()
	if f != nil {
		status, kind = envelope.StatusError, string(f.Kind)
		span.SetStatus(codes.Error, f.Message)
		span.SetAttributes(attribute.String("error.kind", kind))
	}
	duration := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordToolCall(name, status, kind, duration)
	}
	if f != nil {
		d.logger.Warn("tool call failed",
			"tool", name,
			"duration", duration,
			"error_kind", kind,
			"retryable", f.Kind.Retryable(),
			"error", f.Message,
		)
		return env
	}
	d.logger.Info("tool call",
		"tool", name,
		"duration", duration,
		"status", status,
	)
	return env
}

func (d *Dispatcher) call(ctx context.Context, name string, raw map[string]any) envelope.Envelope {
	t, ok := d.tools[name]
	if !ok {
		return envelope.Fail(name, backend.KindInvalidInput, fmt.Sprintf(config.ErrUnknownTool, name))
	}
	args, err := Validate(name, t.Params, raw)
	if err != nil {
		return envelope.FromError(name, err)
	}

	var payload map[string]any
	if t.Blocking && d.pool != nil {
		payload, err = workpool.Run(ctx, d.pool, name, func(ctx context.Context) (map[string]any, error) {
			return invoke(ctx, t, args)
		})
		if errors.Is(err, workpool.ErrClosed) {
			err = backend.E(backend.KindBackendUnavailable, name, err)
		}
	} else {
		payload, err = invoke(ctx, t, args)
	}
	if err != nil {
		return envelope.FromError(name, err)
	}
	return envelope.Success(payload)
}

func invoke(ctx context.Context, t Tool, args Args) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panicked", "tool", t.Name, "panic", r)
			payload, err = nil, backend.Errorf(backend.KindUnknown, t.Name, config.ErrToolPanicked, t.Name, r)
		}
	}()
	return t.Handler(ctx, args)
}

// Handler adapts the named tool to an mcp-go handler. Failures are reported
// in the result, never as a protocol error.
func (d *Dispatcher) Handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return d.Call(ctx, name, req.GetArguments()).ToolResult(), nil
	}
}

// ServerTools returns the catalogue as mcp-go server tools
func (d *Dispatcher) ServerTools() []server.ServerTool {
	out := make([]server.ServerTool, 0, len(d.order))
	for _, t := range d.Tools() {
		out = append(out, server.ServerTool{Tool: t.MCPTool(), Handler: d.Handler(t.Name)})
	}
	return out
}
