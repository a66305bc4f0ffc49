package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/segtree/pkg/config"
	"github.com/Sumatoshi-tech/segtree/pkg/mcp"
	"github.com/Sumatoshi-tech/segtree/pkg/observability"
	"github.com/Sumatoshi-tech/segtree/pkg/persist"
	"github.com/Sumatoshi-tech/segtree/pkg/workspace"
)

const (
	metricsPath            = "/metrics"
	metricsReadTimeout     = 5 * time.Second
	metricsShutdownTimeout = 5 * time.Second
)

// MCPCommand holds the configuration for the mcp command.
type MCPCommand struct {
	debug       bool
	metricsAddr string
	maxTrees    int
	stateDir    string

	obsInit observabilityInit
	serve   func(ctx context.Context, srv *mcp.Server) error
}

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return newMCPCommandWithDeps(observability.Init, func(ctx context.Context, srv *mcp.Server) error {
		return srv.Run(ctx)
	})
}

func newMCPCommandWithDeps(obsInit observabilityInit, serve func(context.Context, *mcp.Server) error) *cobra.Command {
	mc := &MCPCommand{obsInit: obsInit, serve: serve}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server keeps a workspace of named segment trees that agents can manage
through these tools:
  - segtree_create, segtree_list, segtree_drop: tree lifecycle
  - segtree_query, segtree_values: range folds and raw leaves
  - segtree_update, segtree_swap: point mutations
  - segtree_bisect: monotone predicate search
  - segtree_run: batches of script operations applied atomically

With --state-dir the workspace is restored on start and saved on exit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          mc.run,
	}

	cmd.Flags().BoolVar(&mc.debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&mc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default from config)")
	cmd.Flags().IntVar(&mc.maxTrees, "max-trees", 0, "Maximum number of trees held at once (0 = config value)")
	cmd.Flags().StringVar(&mc.stateDir, "state-dir", "", "Load the workspace from and save it to this directory (default from config)")

	return cmd
}

func (mc *MCPCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	metricsAddr := mc.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.MCP.MetricsAddr
	}

	maxTrees := mc.maxTrees
	if maxTrees <= 0 {
		maxTrees = cfg.MCP.MaxTrees
	}

	var (
		readers        []sdkmetric.Reader
		metricsHandler http.Handler
	)

	if metricsAddr != "" {
		handler, reader, promErr := observability.PrometheusHandler()
		if promErr != nil {
			return promErr
		}

		metricsHandler = handler
		readers = append(readers, reader)
	}

	obsCfg := observabilityConfig(cmd, cfg, observability.ModeMCP, mc.debug)
	obsCfg.LogJSON = true

	providers, stop, err := startObservability(mc.obsInit, obsCfg, readers...)
	if err != nil {
		return err
	}
	defer stop()

	red, err := newREDMetrics(providers)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if metricsHandler != nil {
		stopMetrics, serveErr := serveMetrics(ctx, metricsAddr, metricsHandler, providers.Logger)
		if serveErr != nil {
			return serveErr
		}
		defer stopMetrics()
	}

	ws := workspace.New(maxTrees)

	stateDir := mc.stateDir
	if stateDir == "" {
		stateDir = cfg.MCP.StateDir
	}

	if stateDir != "" {
		save, stateErr := restoreWorkspace(ctx, ws, stateDir, cfg, providers.Logger)
		if stateErr != nil {
			return stateErr
		}
		defer save()
	}

	srv := mcp.NewServer(mcp.ServerDeps{
		Logger:    providers.Logger,
		Metrics:   red,
		Tracer:    providers.Tracer,
		Workspace: ws,
		MaxLeaves: cfg.Tree.MaxLeaves,
	})

	providers.Logger.InfoContext(ctx, "mcp server starting",
		"tools", len(srv.ListToolNames()), "max_trees", maxTrees, "metrics_addr", metricsAddr)

	return mc.serve(ctx, srv)
}

// serveMetrics exposes handler at /metrics on addr until the returned stop
// function is called.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) (func(), error) {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
	}

	go func() {
		serveErr := server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	logger.InfoContext(ctx, "metrics server listening", "addr", listener.Addr().String(), "path", metricsPath)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			logger.Warn("metrics server shutdown failed", "error", shutdownErr)
		}
	}, nil
}

// restoreWorkspace loads any snapshot in dir into ws and returns a function
// that writes ws back. An unreadable snapshot stops startup so the file is
// never overwritten. Trees that fail to rebuild are logged and kept by ws,
// so the save writes them back unchanged.
func restoreWorkspace(
	ctx context.Context, ws *workspace.Workspace, dir string, cfg *config.Config, logger *slog.Logger,
) (func(), error) {
	codec, err := persist.CodecFor(cfg.MCP.StateFormat)
	if err != nil {
		return nil, err
	}

	restored, err := ws.Load(dir, codec, cfg.Tree.MaxLeaves)

	switch {
	case errors.Is(err, persist.ErrNoState):
		logger.InfoContext(ctx, "no saved workspace", "dir", dir)
	case errors.Is(err, workspace.ErrUnreadableSnapshot):
		return nil, fmt.Errorf("restore workspace from %s: %w", dir, err)
	case err != nil:
		logger.WarnContext(ctx, "workspace restore incomplete",
			"dir", dir, "restored", restored, "held", len(ws.Held()), "error", err)
	default:
		logger.InfoContext(ctx, "workspace restored", "dir", dir, "trees", restored)
	}

	return func() {
		saveErr := ws.Save(dir, codec)
		if saveErr != nil {
			logger.Error("workspace save failed", "dir", dir, "error", saveErr)

			return
		}

		logger.Info("workspace saved", "dir", dir, "trees", ws.Len())
	}, nil
}
