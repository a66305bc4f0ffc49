package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/segtree/pkg/config"
	"github.com/Sumatoshi-tech/segtree/pkg/observability"
	"github.com/Sumatoshi-tech/segtree/pkg/render"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// ErrStepsFailed is returned by run --strict when at least one step failed.
var ErrStepsFailed = errors.New("script steps failed")

const (
	opRun      = "run"
	stdinPath  = "-"
	outputPerm = 0o644
)

// RunCommand holds the configuration for the run command.
type RunCommand struct {
	format    string
	noColor   bool
	maxLeaves int
	plotPath  string
	strict    bool

	obsInit observabilityInit
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(observability.Init)
}

func newRunCommandWithDeps(obsInit observabilityInit) *cobra.Command {
	rc := &RunCommand{obsInit: obsInit}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a tree script",
		Long: `Build a segment tree from a YAML or JSON script and apply its operations in order.

Use "-" to read the script from stdin. Failed steps are reported in the
output and leave the tree unchanged; --strict turns them into a non-zero exit.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.format, "format", "f", "", "Output format: table, json, yaml (default from config)")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().IntVar(&rc.maxLeaves, "max-leaves", 0, "Maximum number of leaves (0 = config value)")
	cmd.Flags().StringVar(&rc.plotPath, "plot", "", "Also write an HTML chart of the final tree to this file")
	cmd.Flags().BoolVar(&rc.strict, "strict", false, "Exit with an error when any step fails")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format := formatOrDefault(rc.format, cfg)

	maxLeaves := rc.maxLeaves
	if maxLeaves <= 0 {
		maxLeaves = cfg.Tree.MaxLeaves
	}

	doc, err := readScript(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	parsed, err := script.Parse(doc)
	if err != nil {
		render.Validation(cmd.ErrOrStderr(), args[0], err, outputColor(cfg, rc.noColor))

		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	providers, stop, err := startObservability(rc.obsInit,
		observabilityConfig(cmd, cfg, observability.ModeCLI, false))
	if err != nil {
		return err
	}
	defer stop()

	metrics, err := newREDMetrics(providers)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()

	session, results, err := script.Execute(ctx, parsed, script.Options{
		MaxLeaves: maxLeaves,
		Tracer:    providers.Tracer,
		Logger:    providers.Logger,
		Metrics:   metrics,
	})
	if err != nil {
		recordRun(cmd, metrics, observability.StatusError, time.Since(start))

		return err
	}

	report := render.Report{Name: parsed.Name, Monoid: parsed.Monoid, Leaves: session.Len(), Results: results}

	status := observability.StatusOK
	if report.Failures() > 0 {
		status = observability.StatusError
	}

	recordRun(cmd, metrics, status, time.Since(start))

	err = render.Write(cmd.OutOrStdout(), report, render.Options{Format: format, Color: outputColor(cfg, rc.noColor)})
	if err != nil {
		return err
	}

	if rc.plotPath != "" {
		err = writePlot(rc.plotPath, plotTitle(parsed, args[0]), parsed.Monoid, session.Series())
		if err != nil {
			return err
		}

		progressf(boolFlag(cmd, FlagQuiet), cmd.ErrOrStderr(), "plot written to %s", rc.plotPath)
	}

	if rc.strict && report.Failures() > 0 {
		return fmt.Errorf("%w: %d of %d", ErrStepsFailed, report.Failures(), len(results))
	}

	return nil
}

func recordRun(cmd *cobra.Command, metrics *observability.REDMetrics, status string, elapsed time.Duration) {
	if metrics == nil {
		return
	}

	metrics.RecordRequest(cmd.Context(), opRun, status, elapsed)
}

// readScript loads a script from path, or from stdin when path is "-".
func readScript(path string, stdin io.Reader) ([]byte, error) {
	if path == stdinPath {
		doc, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return doc, nil
	}

	doc, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return doc, nil
}

func writePlot(path, title, monoidName string, series script.Series) error {
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputPerm)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	err = render.Plot(file, title, monoidName, series)
	if err != nil {
		_ = file.Close()

		return err
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close plot file: %w", err)
	}

	return nil
}

func plotTitle(s *script.Script, path string) string {
	if s.Name != "" {
		return s.Name
	}

	if path == stdinPath {
		return "segtree"
	}

	return filepath.Base(path)
}

// formatOrDefault falls back to the configured format when --format is unset.
func formatOrDefault(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}

	return cfg.Output.Format
}
