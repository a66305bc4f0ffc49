// Package commands implements the segtree CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/segtree/pkg/config"
	"github.com/Sumatoshi-tech/segtree/pkg/observability"
	"github.com/Sumatoshi-tech/segtree/pkg/version"
)

// Persistent flag names registered on the root command.
const (
	FlagConfig  = "config"
	FlagVerbose = "verbose"
	FlagQuiet   = "quiet"
)

// observabilityInit builds telemetry providers. Commands take it as a
// dependency so tests can substitute in-memory exporters.
type observabilityInit func(cfg observability.Config, readers ...sdkmetric.Reader) (observability.Providers, error)

// loadConfig reads the file named by --config, or the default search path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		path = ""
	}

	return config.LoadConfig(path)
}

func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return v
}

// observabilityConfig maps application config onto telemetry config.
// The standard OTEL_EXPORTER_OTLP_* variables override file settings, and
// logs go to the command's stderr.
func observabilityConfig(
	cmd *cobra.Command, cfg *config.Config, mode observability.AppMode, debug bool,
) observability.Config {
	verbose := debug || boolFlag(cmd, FlagVerbose)

	obsCfg := observability.DefaultConfig()
	obsCfg.LogOutput = cmd.ErrOrStderr()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = observability.ParseLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.JSON

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		obsCfg.OTLPEndpoint = endpoint
	}

	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))

	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		obsCfg.OTLPInsecure = true
	}

	if verbose {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return obsCfg
}

// startObservability initializes providers and returns a shutdown hook
// that logs rather than fails.
func startObservability(
	initFn observabilityInit, obsCfg observability.Config, readers ...sdkmetric.Reader,
) (observability.Providers, func(), error) {
	providers, err := initFn(obsCfg, readers...)
	if err != nil {
		return observability.Providers{}, nil, fmt.Errorf("init observability: %w", err)
	}

	if providers.Logger == nil {
		providers.Logger = slog.New(slog.DiscardHandler)
	}

	stop := func() {
		if providers.Shutdown == nil {
			return
		}

		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return providers, stop, nil
}

// newREDMetrics returns nil when the providers carry no meter.
func newREDMetrics(providers observability.Providers) (*observability.REDMetrics, error) {
	if providers.Meter == nil {
		return nil, nil //nolint:nilnil // metrics are optional.
	}

	return observability.NewREDMetrics(providers.Meter)
}

// outputColor resolves colour from config and --no-color.
func outputColor(cfg *config.Config, noColor bool) bool {
	return cfg.Output.Color && !noColor
}

func progressf(quiet bool, writer io.Writer, format string, args ...any) {
	if quiet {
		return
	}

	_, _ = fmt.Fprintf(writer, "progress: "+format+"\n", args...)
}
