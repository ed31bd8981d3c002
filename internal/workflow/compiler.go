package workflow

import (
	"context"
	"fmt"
	"log/slog"
)

// Compiler lowers a workflow IR into an executable CompiledGraph. The
// registry is injected at construction; there is no hidden global state.
type Compiler struct {
	registry  *Registry
	validator *Validator
	store     CheckpointStore
	logger    *slog.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCheckpointStore binds a checkpoint substrate into every graph the
// compiler produces.
func WithCheckpointStore(store CheckpointStore) CompilerOption {
	return func(c *Compiler) {
		c.store = store
	}
}

// WithCompilerLogger sets the structured logger used during compilation.
func WithCompilerLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// NewCompiler creates a Compiler reading handlers and condition
// evaluators from the given registry.
func NewCompiler(registry *Registry, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		registry:  registry,
		validator: NewValidator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileResult is the structured outcome of one compile call. On failure
// it carries a short human-readable error and, when validation ran, the
// full validation report; it never carries a partial graph.
type CompileResult struct {
	Success    bool              `json:"success"`
	Graph      *CompiledGraph    `json:"-"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Compile lowers the workflow into an executable graph. When validate is
// true, the validator runs first and a failed report aborts the compile
// before anything is built. Compilation without validation is still safe:
// a missing handler fails the whole compile either way.
//
// The returned result is always non-nil; the error mirrors result.Error
// with its typed cause.
func (c *Compiler) Compile(w *Workflow, validate bool) (result *CompileResult, err error) {
	// Anomalies during assembly are reported as a compile failure, never
	// as a panic in the caller.
	defer func() {
		if r := recover(); r != nil {
			compErr := &CompilationError{Message: fmt.Sprintf("internal compiler failure: %v", r)}
			result = &CompileResult{Success: false, Error: compErr.Error()}
			err = compErr
		}
	}()

	result = &CompileResult{}

	if validate {
		report := c.validator.Validate(w, c.registry)
		result.Validation = report
		if !report.IsValid {
			compErr := &CompilationError{
				Message: fmt.Sprintf("workflow validation failed with %d error(s)", len(report.Errors())),
			}
			result.Error = compErr.Error()
			c.logger.Warn("workflow failed pre-compile validation",
				"workflow_id", w.ID,
				"errors", len(report.Errors()),
				"warnings", len(report.Warnings()),
			)
			return result, compErr
		}
	}

	graph := &CompiledGraph{
		workflow: w,
		entry:    w.EntryNodeID,
		nodes:    make(map[string]Handler, len(w.Nodes)),
		routes:   make(map[string]RouteFn),
		targets:  make(map[string][]string),
		store:    c.store,
	}
	index := w.NodeIndex()

	for i := range w.Nodes {
		node := &w.Nodes[i]
		handler, err := c.registry.GetHandler(node.Type)
		if err != nil {
			result.Error = err.Error()
			result.Success = false
			return result, err
		}
		graph.nodes[node.ID] = c.wrapHandler(node, handler)
	}

	if err := c.buildRoutes(w, index, graph); err != nil {
		result.Error = err.Error()
		result.Success = false
		return result, err
	}

	result.Success = true
	result.Graph = graph
	c.logger.Info("workflow compiled",
		"workflow_id", w.ID,
		"tenant_id", w.TenantID,
		"nodes", len(graph.nodes),
		"routes", len(graph.routes),
	)
	return result, nil
}

// wrapHandler adapts a registered handler for graph execution: it records
// the node into the execution path and marks it current strictly before
// the handler runs, merges the handler's partial state back, and isolates
// failures. A handler error never propagates up the graph; it is recorded
// into state.error and execution continues to whatever edge follows.
func (c *Compiler) wrapHandler(node *Node, handler Handler) Handler {
	nodeID := node.ID
	config := node.Data
	return func(ctx context.Context, state *ExecutionState, _ map[string]any) (*ExecutionState, error) {
		state.BeginNode(nodeID)

		out, err := handler(ctx, state, config)
		if err != nil {
			c.logger.Warn("node handler failed, recording and continuing",
				"node_id", nodeID,
				"error", err,
			)
			state.SetError(err.Error())
			return state, nil
		}
		if out != nil && out != state {
			state.Merge(out)
		}
		return state, nil
	}
}

// buildRoutes lowers the edge set, dispatching on each source node's
// type. A router contributes one conditional route covering all of its
// outgoing routes at once; a condition node contributes one binary route;
// everything else gets a plain route. Edges into end nodes compile like
// any other edge: termination is a property of reaching a node with no
// outgoing route.
func (c *Compiler) buildRoutes(w *Workflow, index map[string]*Node, graph *CompiledGraph) error {
	for i := range w.Nodes {
		node := &w.Nodes[i]
		switch node.Type {
		case NodeTypeRouter:
			if err := c.buildRouterRoute(node, index, graph); err != nil {
				return err
			}
		case NodeTypeCondition:
			if err := c.buildConditionRoute(node, graph); err != nil {
				return err
			}
		default:
			c.buildPlainRoute(node, w, graph)
		}
	}
	return nil
}

// buildRouterRoute compiles a router node's ordered condition list plus
// default into one routing function. At run time conditions are tried in
// order; the first whose registered evaluator returns true wins. An
// unregistered condition id is skipped, not an error; when nothing
// matches the default target is returned unconditionally. Targets that
// resolve to end nodes map to the terminal marker.
func (c *Compiler) buildRouterRoute(node *Node, index map[string]*Node, graph *CompiledGraph) error {
	conditions := RouterConditions(node.Data)
	defaultTarget, _ := node.Data["defaultTargetNodeId"].(string)
	if len(conditions) == 0 && defaultTarget == "" {
		return &CompilationError{
			Message: "router node has neither conditions nor a default target",
			NodeID:  node.ID,
		}
	}

	resolve := func(target string) string {
		if t, ok := index[target]; ok && t.Type == NodeTypeEnd {
			return End
		}
		return target
	}

	var targets []string
	for _, cond := range conditions {
		targets = append(targets, resolve(cond.TargetNodeID))
	}
	targets = append(targets, resolve(defaultTarget))
	graph.targets[node.ID] = targets

	registry := c.registry
	graph.routes[node.ID] = func(state *ExecutionState) string {
		for _, cond := range conditions {
			evaluator, err := registry.GetCondition(cond.Expression)
			if err != nil {
				// Unregistered condition: treated as not matched.
				continue
			}
			if evaluator(state) {
				return resolve(cond.TargetNodeID)
			}
		}
		return resolve(defaultTarget)
	}
	return nil
}

// buildConditionRoute compiles a condition node into a binary route on
// state.condition_result. The node's expression is carried as
// configuration but never interpreted; a prior node is expected to have
// set the boolean.
func (c *Compiler) buildConditionRoute(node *Node, graph *CompiledGraph) error {
	trueTarget, _ := node.Data["trueTargetNodeId"].(string)
	falseTarget, _ := node.Data["falseTargetNodeId"].(string)
	if trueTarget == "" || falseTarget == "" {
		return &CompilationError{
			Message: "condition node requires trueTargetNodeId and falseTargetNodeId",
			NodeID:  node.ID,
		}
	}

	graph.targets[node.ID] = []string{trueTarget, falseTarget}
	graph.routes[node.ID] = func(state *ExecutionState) string {
		if state.ConditionResult {
			return trueTarget
		}
		return falseTarget
	}
	return nil
}

// buildPlainRoute compiles an ordinary node's outgoing edge. Nodes with
// no outgoing edge keep no route and terminate the graph. When a node has
// several plain outgoing edges the first one in document order wins.
func (c *Compiler) buildPlainRoute(node *Node, w *Workflow, graph *CompiledGraph) {
	outgoing := w.OutgoingEdges(node.ID)
	if len(outgoing) == 0 {
		return
	}
	if len(outgoing) > 1 {
		c.logger.Warn("node has multiple plain outgoing edges, using the first",
			"node_id", node.ID,
			"edges", len(outgoing),
		)
	}

	target := outgoing[0].Target
	graph.targets[node.ID] = []string{target}
	graph.routes[node.ID] = func(*ExecutionState) string {
		return target
	}
}
