// Package mcp implements a Model Context Protocol server exposing a workspace
// of named segment trees as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/segtree/pkg/config"
	"github.com/Sumatoshi-tech/segtree/pkg/observability"
	"github.com/Sumatoshi-tech/segtree/pkg/version"
	"github.com/Sumatoshi-tech/segtree/pkg/workspace"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "segtree"

	// toolCount is the expected number of registered tools.
	toolCount = 9
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Workspace holds the trees. Nil creates one bounded by config.DefaultMCPMaxTrees.
	Workspace *workspace.Workspace

	// MaxLeaves caps the size of created trees. Zero uses config.DefaultMaxLeaves.
	MaxLeaves int
}

// Server wraps the MCP SDK server with segment tree tool registrations.
type Server struct {
	inner     *mcpsdk.Server
	mu        sync.RWMutex
	tools     []string
	metrics   *observability.REDMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
	workspace *workspace.Workspace
	maxLeaves int
}

// NewServer creates a new MCP server with all tree tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	ws := deps.Workspace
	if ws == nil {
		ws = workspace.New(config.DefaultMCPMaxTrees)
	}

	maxLeaves := deps.MaxLeaves
	if maxLeaves <= 0 {
		maxLeaves = config.DefaultMaxLeaves
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		inner:     inner,
		tools:     make([]string, 0, toolCount),
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		logger:    logger,
		workspace: ws,
		maxLeaves: maxLeaves,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all tree tools to the server.
func (s *Server) registerTools() {
	addTool(s, ToolNameCreate, createToolDescription, s.handleCreate)
	addTool(s, ToolNameList, listToolDescription, s.handleList)
	addTool(s, ToolNameDrop, dropToolDescription, s.handleDrop)
	addTool(s, ToolNameQuery, queryToolDescription, s.handleQuery)
	addTool(s, ToolNameValues, valuesToolDescription, s.handleValues)
	addTool(s, ToolNameUpdate, updateToolDescription, s.handleUpdate)
	addTool(s, ToolNameSwap, swapToolDescription, s.handleSwap)
	addTool(s, ToolNameBisect, bisectToolDescription, s.handleBisect)
	addTool(s, ToolNameRun, runToolDescription, s.handleRun)
}

func addTool[Input any](s *Server, name, description string, handler toolHandler[Input]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, mcpsdk.ToolHandlerFor[Input, ToolOutput](withMetrics(s.metrics, name, withTracing(s.tracer, name, handler))))

	s.trackTool(name)
}

type toolHandler[Input any] func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error)

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](tracer trace.Tracer, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		if result != nil && result.IsError {
			span.SetAttributes(attribute.Bool("mcp.tool.error", true))
		}

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics, toolName string, handler toolHandler[Input],
) toolHandler[Input] {
	if metrics == nil {
		return handler
	}

	op := mcpSpanPrefix + toolName

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, op)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	createToolDescription = "Build a named segment tree from leaf values. " +
		"Monoids: sum, product, max, min, gcd, lcm, xor, concat. " +
		"Leaves are strings parsed per monoid (integers, or text for concat)."

	listToolDescription = "List the trees held by the server with their monoid and leaf count."

	dropToolDescription = "Remove a named tree and free its slot."

	queryToolDescription = "Fold a half-open range of a tree. " +
		"Ranges look like 2..5, 2..=5, ..5 or 3.. and an empty range folds to the identity."

	valuesToolDescription = "Return the raw leaf values covered by a range."

	updateToolDescription = "Replace one leaf with a new value, or transform it in place with fn " +
		"(+ n, - n, * n, max n, min n, set n for integers; append s, prepend s, set s for concat). " +
		"Returns the previous value."

	swapToolDescription = "Exchange two leaves of a tree."

	bisectToolDescription = "Find the boundary where a monotone predicate over the accumulated fold flips. " +
		"leftmost returns the first index whose prefix fold satisfies the predicate, " +
		"rightmost the last index whose suffix fold does."

	runToolDescription = "Apply a batch of script operations to a tree atomically " +
		"(query, get, values, update, apply, swap, bisect) and return one result per step."
)
