package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/segtree/pkg/config"
	"github.com/Sumatoshi-tech/segtree/pkg/render"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// QueryCommand holds the configuration for the query command.
type QueryCommand struct {
	monoid    string
	data      []string
	rangeExpr string
	bisect    string
	direction string
	format    string
}

// QueryResult is the structured output of the query command.
type QueryResult struct {
	Monoid    string `json:"monoid" yaml:"monoid"`
	Range     string `json:"range" yaml:"range"`
	Value     any    `json:"value,omitempty" yaml:"value,omitempty"`
	Predicate string `json:"predicate,omitempty" yaml:"predicate,omitempty"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Index     *int   `json:"index,omitempty" yaml:"index,omitempty"`
	Found     *bool  `json:"found,omitempty" yaml:"found,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	qc := &QueryCommand{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Fold or search a range of an inline tree",
		Long: `Build a tree from --data and either fold --range or, with --bisect,
search it for the boundary of a monotone predicate.

Examples:
  segtree query --monoid max --data 3,9,4 --range 1..
  segtree query --data 5,1,7,2 --bisect ">= 6"
  segtree query --monoid concat --data a,bc,d --bisect "len>= 3" --direction rightmost`,
		Args: cobra.NoArgs,
		RunE: qc.run,
	}

	cmd.Flags().StringVarP(&qc.monoid, "monoid", "m", "", "Monoid name (default from config)")
	cmd.Flags().StringSliceVarP(&qc.data, "data", "d", nil, "Comma separated leaf values")
	cmd.Flags().StringVarP(&qc.rangeExpr, "range", "r", "", "Range such as 2..5, 2..=5, ..5 (default: whole tree)")
	cmd.Flags().StringVar(&qc.bisect, "bisect", "", "Predicate to search for instead of folding, e.g. '>= 10'")
	cmd.Flags().StringVar(&qc.direction, "direction", "", "Bisect direction: leftmost or rightmost")
	cmd.Flags().StringVarP(&qc.format, "format", "f", "", "Output format: table, json, yaml (default from config)")

	return cmd
}

func (qc *QueryCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	monoidName := qc.monoid
	if monoidName == "" {
		monoidName = cfg.Tree.DefaultMonoid
	}

	session, err := script.NewSession(monoidName, qc.data, cfg.Tree.MaxLeaves)
	if err != nil {
		return err
	}

	r, err := script.ParseRange(qc.rangeExpr)
	if err != nil {
		return err
	}

	result := QueryResult{Monoid: monoidName, Range: r.String()}

	if qc.bisect != "" {
		dir, dirErr := script.ParseDirection(qc.direction)
		if dirErr != nil {
			return dirErr
		}

		idx, found, bisectErr := session.Bisect(r, qc.bisect, dir)
		if bisectErr != nil {
			return bisectErr
		}

		result.Predicate = qc.bisect
		result.Direction = dir.String()
		result.Found = &found

		if found {
			result.Index = &idx
		}
	} else {
		result.Value = session.Query(r)
	}

	return writeQueryResult(cmd, formatOrDefault(qc.format, cfg), result)
}

func writeQueryResult(cmd *cobra.Command, format string, result QueryResult) error {
	out := cmd.OutOrStdout()

	switch format {
	case config.FormatJSON:
		return render.JSON(out, result)
	case config.FormatYAML:
		return render.YAML(out, result)
	case config.FormatTable:
		switch {
		case result.Found == nil:
			_, err := fmt.Fprintln(out, render.FormatValue(result.Value))

			return err
		case *result.Found:
			_, err := fmt.Fprintln(out, *result.Index)

			return err
		default:
			_, err := fmt.Fprintln(out, "not found")

			return err
		}
	default:
		return fmt.Errorf("%w: %q", render.ErrUnknownFormat, format)
	}
}
