package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// Tool name constants.
const (
	ToolNameCreate = "segtree_create"
	ToolNameList   = "segtree_list"
	ToolNameDrop   = "segtree_drop"
	ToolNameQuery  = "segtree_query"
	ToolNameValues = "segtree_values"
	ToolNameUpdate = "segtree_update"
	ToolNameSwap   = "segtree_swap"
	ToolNameBisect = "segtree_bisect"
	ToolNameRun    = "segtree_run"
)

// MaxRunOps is the maximum number of operations accepted by one segtree_run call.
const MaxRunOps = 4096

// Sentinel errors for tool input validation.
var (
	// ErrEmptyName indicates the name parameter is empty.
	ErrEmptyName = errors.New("name parameter is required and must not be empty")
	// ErrValueAndFn indicates both value and fn were given to segtree_update.
	ErrValueAndFn = errors.New("exactly one of value or fn must be set")
	// ErrTooManyOps indicates a run batch exceeds MaxRunOps.
	ErrTooManyOps = errors.New("too many operations")
)

// Input types (auto-generate JSON schemas via struct tags).

// CreateInput is the input schema for the segtree_create tool.
type CreateInput struct {
	Name   string   `json:"name"           jsonschema:"name of the tree"`
	Monoid string   `json:"monoid"         jsonschema:"monoid: sum product max min gcd lcm xor or concat"`
	Data   []string `json:"data,omitempty" jsonschema:"leaf values in order"`
}

// ListInput is the input schema for the segtree_list tool.
type ListInput struct{}

// NameInput is the input schema for tools that address a tree only.
type NameInput struct {
	Name string `json:"name" jsonschema:"name of the tree"`
}

// RangeInput is the input schema for segtree_query and segtree_values.
type RangeInput struct {
	Name  string `json:"name"            jsonschema:"name of the tree"`
	Range string `json:"range,omitempty" jsonschema:"half-open range such as 2..5 or 2..=5 (default: whole tree)"`
}

// UpdateInput is the input schema for the segtree_update tool.
type UpdateInput struct {
	Name  string `json:"name"            jsonschema:"name of the tree"`
	Index int    `json:"index"           jsonschema:"zero-based leaf index"`
	Value string `json:"value,omitempty" jsonschema:"replacement leaf value"`
	Fn    string `json:"fn,omitempty"    jsonschema:"transform applied to the current leaf such as '+ 3' or 'append x'"`
}

// SwapInput is the input schema for the segtree_swap tool.
type SwapInput struct {
	Name  string `json:"name"  jsonschema:"name of the tree"`
	Index int    `json:"index" jsonschema:"first leaf index"`
	Other int    `json:"other" jsonschema:"second leaf index"`
}

// BisectInput is the input schema for the segtree_bisect tool.
type BisectInput struct {
	Name      string `json:"name"                jsonschema:"name of the tree"`
	Range     string `json:"range,omitempty"     jsonschema:"half-open range to search (default: whole tree)"`
	Predicate string `json:"predicate"           jsonschema:"monotone predicate on the fold such as '>= 10' or 'len>= 3'"`
	Direction string `json:"direction,omitempty" jsonschema:"leftmost (default) or rightmost"`
}

// RunInput is the input schema for the segtree_run tool.
type RunInput struct {
	Name string      `json:"name" jsonschema:"name of the tree"`
	Ops  []script.Op `json:"ops"  jsonschema:"operations applied in order"`
}

// Output types.

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ValueOutput carries a single folded or previous value.
type ValueOutput struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BisectOutput carries the outcome of a search.
type BisectOutput struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Found bool   `json:"found"`
}

// RunOutput carries per-step results of a batch.
type RunOutput struct {
	Name     string          `json:"name"`
	Results  []script.Result `json:"results"`
	Failures int             `json:"failures"`
}

// Handlers.

func (s *Server) handleCreate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CreateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Name == "" {
		return errorResult(ErrEmptyName)
	}

	info, err := s.workspace.Create(input.Name, input.Monoid, input.Data, s.maxLeaves)
	if err != nil {
		return errorResult(err)
	}

	if s.metrics != nil {
		s.metrics.RecordBuild(ctx, info.Monoid, info.Leaves)
	}

	s.logger.InfoContext(ctx, "tree created", "name", info.Name, "monoid", info.Monoid, "leaves", info.Leaves)

	return jsonResult(info)
}

func (s *Server) handleList(
	_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return jsonResult(s.workspace.List())
}

func (s *Server) handleDrop(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input NameInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.workspace.Drop(input.Name)
	if err != nil {
		return errorResult(err)
	}

	s.logger.InfoContext(ctx, "tree dropped", "name", input.Name)

	return jsonResult(map[string]string{"dropped": input.Name})
}

func (s *Server) handleQuery(
	_ context.Context, _ *mcpsdk.CallToolRequest, input RangeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	entry, err := s.workspace.Get(input.Name)
	if err != nil {
		return errorResult(err)
	}

	r, err := script.ParseRange(input.Range)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ValueOutput{Name: input.Name, Value: entry.Query(r)})
}

func (s *Server) handleValues(
	_ context.Context, _ *mcpsdk.CallToolRequest, input RangeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	entry, err := s.workspace.Get(input.Name)
	if err != nil {
		return errorResult(err)
	}

	r, err := script.ParseRange(input.Range)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ValueOutput{Name: input.Name, Value: entry.Values(r)})
}

func (s *Server) handleUpdate(
	_ context.Context, _ *mcpsdk.CallToolRequest, input UpdateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if (input.Value == "") == (input.Fn == "") {
		return errorResult(ErrValueAndFn)
	}

	entry, err := s.workspace.Get(input.Name)
	if err != nil {
		return errorResult(err)
	}

	var prev any
	if input.Fn != "" {
		prev, err = entry.Apply(input.Index, input.Fn)
	} else {
		prev, err = entry.Update(input.Index, input.Value)
	}

	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ValueOutput{Name: input.Name, Value: prev})
}

func (s *Server) handleSwap(
	_ context.Context, _ *mcpsdk.CallToolRequest, input SwapInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	entry, err := s.workspace.Get(input.Name)
	if err != nil {
		return errorResult(err)
	}

	err = entry.Swap(input.Index, input.Other)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(entry.Info())
}

func (s *Server) handleBisect(
	_ context.Context, _ *mcpsdk.CallToolRequest, input BisectInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	entry, err := s.workspace.Get(input.Name)
	if err != nil {
		return errorResult(err)
	}

	r, err := script.ParseRange(input.Range)
	if err != nil {
		return errorResult(err)
	}

	dir, err := script.ParseDirection(input.Direction)
	if err != nil {
		return errorResult(err)
	}

	idx, found, err := entry.Bisect(r, input.Predicate, dir)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(BisectOutput{Name: input.Name, Index: idx, Found: found})
}

func (s *Server) handleRun(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input RunInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Ops) > MaxRunOps {
		return errorResult(fmt.Errorf("%w: %d (max %d)", ErrTooManyOps, len(input.Ops), MaxRunOps))
	}

	entry, err := s.workspace.Get(input.Name)
	if err != nil {
		return errorResult(err)
	}

	results := entry.Run(input.Ops)

	out := RunOutput{Name: input.Name, Results: results}
	for _, res := range results {
		if res.Failed() {
			out.Failures++
		}
	}

	s.logger.DebugContext(ctx, "batch applied", "name", input.Name, "ops", len(results), "failures", out.Failures)

	return jsonResult(out)
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
