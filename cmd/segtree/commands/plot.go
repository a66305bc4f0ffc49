package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/segtree/pkg/render"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plot <script>",
		Short: "Chart the leaves and prefix folds of a script's final tree",
		Long: `Execute a script and write an HTML page charting every leaf of the final
tree and the running fold over [0, i]. String leaves are charted by length.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			doc, err := readScript(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			parsed, err := script.Parse(doc)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			session, _, err := script.Execute(cmd.Context(), parsed, script.Options{MaxLeaves: cfg.Tree.MaxLeaves})
			if err != nil {
				return err
			}

			title := plotTitle(parsed, args[0])

			if output == "" {
				return render.Plot(cmd.OutOrStdout(), title, parsed.Monoid, session.Series())
			}

			err = writePlot(output, title, parsed.Monoid, session.Series())
			if err != nil {
				return err
			}

			progressf(boolFlag(cmd, FlagQuiet), cmd.ErrOrStderr(), "plot written to %s", output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "HTML output file (default: stdout)")

	return cmd
}
