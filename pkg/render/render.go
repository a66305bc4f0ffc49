// Package render writes script results and tree series as tables, JSON,
// YAML, or HTML charts.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/segtree/pkg/config"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// ErrUnknownFormat is returned for an output format other than table,
// json, or yaml.
var ErrUnknownFormat = errors.New("unknown output format")

const yamlIndent = 2

// Report is the serialized form of a script run.
type Report struct {
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	Monoid  string          `json:"monoid" yaml:"monoid"`
	Leaves  int             `json:"leaves" yaml:"leaves"`
	Results []script.Result `json:"results" yaml:"results"`
}

// Failures counts failed steps.
func (r Report) Failures() int {
	n := 0

	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}

	return n
}

// Options controls rendering.
type Options struct {
	Format string
	Color  bool
}

// Write renders report in the requested format.
func Write(w io.Writer, report Report, opts Options) error {
	switch opts.Format {
	case config.FormatTable, "":
		return Table(w, report, opts.Color)
	case config.FormatJSON:
		return JSON(w, report)
	case config.FormatYAML:
		return YAML(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// YAML writes v as a YAML document.
func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}
