package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// defaultMaxSteps bounds a single run. Compiled graphs are validated to
// be well-formed, but routing decisions are taken at run time and a
// misconfigured router can loop.
const defaultMaxSteps = 1000

// Runner steps a compiled graph from its entry node to the terminal
// marker, invoking each wrapped handler, following routing decisions, and
// checkpointing state after every step.
type Runner struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	maxSteps int
}

// RunnerOption is a functional option for configuring a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger configures the runner's structured logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithTracer configures an OpenTelemetry tracer for per-node spans.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithMaxSteps overrides the run-time step budget.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// NewRunner creates a Runner. Defaults: slog.Default(), no-op tracer,
// a step budget of 1000.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("vitalflow/workflow"),
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the graph from its entry node until a route resolves to
// the terminal marker, mutating and returning the given state. The state
// is checkpointed after every step when the graph carries a store.
//
// A handler failure never aborts the run; it is already recorded into the
// state by the compiled wrapper. Run itself fails only when progress is
// impossible: cancelled context, unknown node, or exhausted step budget.
func (r *Runner) Run(ctx context.Context, graph *CompiledGraph, state *ExecutionState) (*ExecutionState, error) {
	ctx, span := r.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.id", state.WorkflowID),
			attribute.String("execution.id", state.ExecutionID),
		),
	)
	defer span.End()

	r.logger.Info("starting workflow execution",
		"workflow_id", state.WorkflowID,
		"execution_id", state.ExecutionID,
		"entry_node", graph.Entry(),
	)

	if err := r.runFrom(ctx, graph, state, graph.Entry()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return state, err
	}

	state.Complete()
	span.SetStatus(codes.Ok, "workflow completed")
	r.logger.Info("workflow execution completed",
		"workflow_id", state.WorkflowID,
		"execution_id", state.ExecutionID,
		"steps", len(state.ExecutionPath),
		"error", state.Error,
	)
	return state, nil
}

// Resume loads the latest checkpoint for an execution and continues from
// the route after its current node.
func (r *Runner) Resume(ctx context.Context, graph *CompiledGraph, executionID string) (*ExecutionState, error) {
	store := graph.Store()
	if store == nil {
		return nil, &ExecutionError{Message: "graph was compiled without a checkpoint store"}
	}

	state, err := store.Load(ctx, executionID)
	if err != nil {
		return nil, &ExecutionError{
			Message: fmt.Sprintf("no checkpoint for execution %q", executionID),
			Cause:   err,
		}
	}

	r.logger.Info("resuming workflow execution",
		"workflow_id", state.WorkflowID,
		"execution_id", executionID,
		"current_node", state.CurrentNodeID,
	)

	// The checkpointed current node already ran; pick up at its route.
	next := graph.Route(state.CurrentNodeID, state)
	if err := r.runFrom(ctx, graph, state, next); err != nil {
		return state, err
	}
	state.Complete()
	return state, nil
}

// runFrom steps the graph starting at the given node until End.
func (r *Runner) runFrom(ctx context.Context, graph *CompiledGraph, state *ExecutionState, current string) error {
	store := graph.Store()

	for steps := 0; current != End; steps++ {
		if steps >= r.maxSteps {
			return &ExecutionError{
				Message: fmt.Sprintf("step budget of %d exhausted", r.maxSteps),
				NodeID:  current,
			}
		}
		if err := ctx.Err(); err != nil {
			return &ExecutionError{Message: "execution cancelled", NodeID: current, Cause: err}
		}

		handler, ok := graph.Node(current)
		if !ok {
			return &ExecutionError{
				Message: fmt.Sprintf("route resolved to unknown node %q", current),
				NodeID:  current,
			}
		}

		nodeCtx, span := r.tracer.Start(ctx, "workflow.execute_node",
			trace.WithAttributes(attribute.String("node.id", current)),
		)

		// The compiled wrapper records the path, merges handler output,
		// and swallows handler errors into the state.
		if _, err := handler(nodeCtx, state, nil); err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return &ExecutionError{Message: "wrapped handler returned an error", NodeID: current, Cause: err}
		}
		span.End()

		if store != nil {
			if err := store.Save(ctx, state.ExecutionID, state.Clone()); err != nil {
				// A checkpointing failure degrades resumability, not the
				// run itself.
				r.logger.Error("failed to checkpoint execution state",
					"execution_id", state.ExecutionID,
					"node_id", current,
					"error", err,
				)
			}
		}

		current = graph.Route(current, state)
	}
	return nil
}
