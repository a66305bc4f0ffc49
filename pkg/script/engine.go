package script

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/segtree/pkg/observability"
)

const (
	spanRun        = "segtree.script.run"
	eventOp        = "segtree.op"
	attrScriptName = "segtree.script.name"
	attrMonoid     = "segtree.monoid"
	attrLeaves     = "segtree.leaves"
	attrOps        = "segtree.ops"
	attrStep       = "segtree.step"
	attrOpName     = "segtree.op.name"
	attrOpTarget   = "segtree.op.target"
	attrFailed     = "segtree.op.failed"
)

// Options configures script execution. The zero value runs without a leaf
// limit, logs nowhere, and uses the global tracer.
type Options struct {
	MaxLeaves int
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Metrics   *observability.REDMetrics
}

// Result is the outcome of one script step. Failed steps carry Err and
// leave the tree unchanged; execution continues with the next step.
type Result struct {
	Step     int    `json:"step" yaml:"step"`
	Op       string `json:"op" yaml:"op"`
	Target   string `json:"target" yaml:"target"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty"`
	Previous any    `json:"previous,omitempty" yaml:"previous,omitempty"`
	Found    *bool  `json:"found,omitempty" yaml:"found,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Err      error  `json:"-" yaml:"-"`
}

// Failed reports whether the step returned an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Run executes every step of s and returns one Result per step.
func Run(ctx context.Context, s *Script, opts Options) ([]Result, error) {
	_, results, err := Execute(ctx, s, opts)

	return results, err
}

// Execute is Run that also returns the session in its final state.
// The returned error covers only tree construction; step failures are
// reported in the results.
func Execute(ctx context.Context, s *Script, opts Options) (Session, []Result, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("segtree")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, span := tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.String(attrScriptName, s.Name),
		attribute.String(attrMonoid, s.Monoid),
		attribute.Int(attrLeaves, len(s.Data)),
		attribute.Int(attrOps, len(s.Ops)),
	))
	defer span.End()

	session, err := NewSession(s.Monoid, s.Data, opts.MaxLeaves)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")

		return nil, nil, fmt.Errorf("build %s tree: %w", s.Monoid, err)
	}

	if opts.Metrics != nil {
		opts.Metrics.RecordBuild(ctx, s.Monoid, session.Len())
	}

	logger.DebugContext(ctx, "tree built", "monoid", s.Monoid, "leaves", session.Len())

	results := make([]Result, 0, len(s.Ops))
	failures := 0

	for step, op := range s.Ops {
		res := Apply(session, op)
		res.Step = step

		span.AddEvent(eventOp, trace.WithAttributes(
			attribute.Int(attrStep, step),
			attribute.String(attrOpName, res.Op),
			attribute.String(attrOpTarget, res.Target),
			attribute.Bool(attrFailed, res.Failed()),
		))

		if res.Failed() {
			failures++

			logger.WarnContext(ctx, "step failed", "step", step, "op", res.Op, "error", res.Err)
		}

		results = append(results, res)
	}

	if failures > 0 {
		span.SetStatus(codes.Error, strconv.Itoa(failures)+" steps failed")
	}

	return session, results, nil
}

// Apply runs a single op against session. It never panics on bad input;
// every problem is reported through Result.Err.
func Apply(session Session, op Op) Result {
	res := Result{Op: op.Op}

	switch op.Op {
	case OpQuery, OpValues, OpBisect:
		res.Target = op.Range
		if res.Target == "" {
			res.Target = rangeSep
		}
	case OpSwap:
		res.Target = fmt.Sprintf("%d<->%d", op.Index, op.Other)
	default:
		res.Target = strconv.Itoa(op.Index)
	}

	err := apply(session, op, &res)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}

	return res
}

func apply(session Session, op Op, res *Result) error {
	switch op.Op {
	case OpQuery:
		r, err := ParseRange(op.Range)
		if err != nil {
			return err
		}

		res.Value = session.Query(r)
	case OpValues:
		r, err := ParseRange(op.Range)
		if err != nil {
			return err
		}

		res.Value = session.Values(r)
	case OpGet:
		v, err := session.Get(op.Index)
		if err != nil {
			return err
		}

		res.Value = v
	case OpUpdate:
		prev, err := session.Update(op.Index, op.Value)
		if err != nil {
			return err
		}

		res.Previous = prev
	case OpApply:
		prev, err := session.Apply(op.Index, op.Fn)
		if err != nil {
			return err
		}

		res.Previous = prev
	case OpSwap:
		return session.Swap(op.Index, op.Other)
	case OpBisect:
		return applyBisect(session, op, res)
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidScript, op.Op)
	}

	return nil
}

func applyBisect(session Session, op Op, res *Result) error {
	r, err := ParseRange(op.Range)
	if err != nil {
		return err
	}

	dir, err := ParseDirection(op.Direction)
	if err != nil {
		return err
	}

	res.Target = fmt.Sprintf("%s %s %s", res.Target, dir, op.Predicate)

	idx, found, err := session.Bisect(r, op.Predicate, dir)
	if err != nil {
		return err
	}

	res.Found = &found
	if found {
		res.Value = idx
	}

	return nil
}
