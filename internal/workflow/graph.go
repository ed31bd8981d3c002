package workflow

import "context"

// End is the compiled graph's terminal marker. A route that resolves to
// End, or a node with no outgoing route, terminates the execution.
const End = "__end__"

// RouteFn decides the next destination after a node, given the current
// state. It returns a node ID or End. Routing is deterministic: the same
// state snapshot always yields the same destination.
type RouteFn func(state *ExecutionState) string

// CheckpointStore is the external substrate that persists execution state
// between steps. The compiler binds one into the graph; the translator
// treats it as a black box.
type CheckpointStore interface {
	Save(ctx context.Context, executionID string, state *ExecutionState) error
	Load(ctx context.Context, executionID string) (*ExecutionState, error)
	List(ctx context.Context, workflowID string) ([]string, error)
	Delete(ctx context.Context, executionID string) error
}

// CompiledGraph is the executable form of a workflow: each node's handler
// wrapped with path recording and error isolation, and each source node's
// outgoing edges lowered to a single routing function.
type CompiledGraph struct {
	workflow *Workflow
	entry    string
	nodes    map[string]Handler
	routes   map[string]RouteFn
	// targets records every destination each routing function can
	// resolve to, pre-registered at compile time.
	targets map[string][]string
	store   CheckpointStore
}

// Workflow returns the IR this graph was compiled from.
func (g *CompiledGraph) Workflow() *Workflow {
	return g.workflow
}

// Entry returns the graph's single entry node ID.
func (g *CompiledGraph) Entry() string {
	return g.entry
}

// Node returns the wrapped handler for a node ID.
func (g *CompiledGraph) Node(nodeID string) (Handler, bool) {
	h, ok := g.nodes[nodeID]
	return h, ok
}

// Route resolves the destination after a node for the given state.
// Nodes without an outgoing route resolve to End.
func (g *CompiledGraph) Route(nodeID string, state *ExecutionState) string {
	route, ok := g.routes[nodeID]
	if !ok {
		return End
	}
	return route(state)
}

// Targets returns the pre-registered destinations of a node's routing
// function. Plain edges have exactly one.
func (g *CompiledGraph) Targets(nodeID string) []string {
	return append([]string{}, g.targets[nodeID]...)
}

// Store returns the checkpoint substrate bound at compile time; nil when
// the graph was compiled without one.
func (g *CompiledGraph) Store() CheckpointStore {
	return g.store
}
