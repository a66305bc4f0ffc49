package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/segtree/pkg/render"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// ErrInvalidScripts is returned when at least one validated script fails.
var ErrInvalidScripts = errors.New("invalid scripts")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <script>...",
		Short: "Check scripts against the script schema",
		Long: `Validate one or more YAML or JSON scripts against the embedded JSON Schema
without building any tree. Every schema violation is listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			useColor := outputColor(cfg, noColor)
			failed := 0

			for _, path := range args {
				doc, readErr := readScript(path, cmd.InOrStdin())
				if readErr == nil {
					readErr = script.Validate(doc)
				}

				render.Validation(cmd.OutOrStdout(), path, readErr, useColor)

				if readErr != nil {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidScripts, failed, len(args))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(script.Schema())
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}

			return nil
		},
	}
}
