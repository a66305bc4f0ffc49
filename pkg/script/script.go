// Package script parses, validates and executes segtree operation scripts.
//
// A script names a monoid, the leaf data, and an ordered list of tree
// operations. Scripts are YAML documents; JSON input is accepted as the
// YAML subset it is. Every document is checked against an embedded JSON
// Schema before it is decoded.
package script

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Sentinel errors.
var (
	ErrInvalidScript    = errors.New("invalid script")
	ErrUnknownMonoid    = errors.New("unknown monoid")
	ErrInvalidRange     = errors.New("invalid range")
	ErrInvalidPredicate = errors.New("invalid predicate")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidFunction  = errors.New("invalid function")
	ErrInvalidValue     = errors.New("invalid value")
	ErrTooManyLeaves    = errors.New("too many leaves")
)

// Operation names.
const (
	OpQuery  = "query"
	OpUpdate = "update"
	OpApply  = "apply"
	OpSwap   = "swap"
	OpBisect = "bisect"
	OpGet    = "get"
	OpValues = "values"
)

//go:embed schema.json
var schemaBytes []byte

// Schema returns the JSON Schema every script must satisfy.
func Schema() []byte {
	return schemaBytes
}

// Script is a decoded operation script.
type Script struct {
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	Monoid string   `yaml:"monoid" json:"monoid"`
	Data   []string `yaml:"data" json:"data"`
	Ops    []Op     `yaml:"ops,omitempty" json:"ops,omitempty"`
}

// Op is one step of a script. Which fields are meaningful depends on Op:
// query and values read Range; update writes Value at Index; apply runs Fn
// on the leaf at Index; swap exchanges Index and Other; bisect searches
// Range with Predicate in Direction; get reads Index.
type Op struct {
	Op        string `yaml:"op" json:"op"`
	Range     string `yaml:"range,omitempty" json:"range,omitempty"`
	Index     int    `yaml:"index,omitempty" json:"index,omitempty"`
	Other     int    `yaml:"other,omitempty" json:"other,omitempty"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	Fn        string `yaml:"fn,omitempty" json:"fn,omitempty"`
	Predicate string `yaml:"predicate,omitempty" json:"predicate,omitempty"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidScript, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidScript.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidScript
}

// Validate checks a raw YAML or JSON document against the script schema.
// It returns a *ValidationError when the document parses but violates the
// schema.
func Validate(doc []byte) error {
	var generic any

	err := yaml.Unmarshal(doc, &generic)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	if generic == nil {
		return &ValidationError{Problems: []string{"(root): document is empty"}}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewGoLoader(generic),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return &ValidationError{Problems: problems}
}

// Parse validates doc and decodes it into a Script.
func Parse(doc []byte) (*Script, error) {
	err := Validate(doc)
	if err != nil {
		return nil, err
	}

	var s Script

	err = yaml.Unmarshal(doc, &s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	return &s, nil
}
