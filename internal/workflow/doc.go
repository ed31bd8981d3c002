// Package workflow turns visually-authored workflow descriptions (nodes
// and edges on a canvas) into executable, stateful graphs.
//
// The translation pipeline has four components, leaf-first:
//
//   - Registry: an explicit, injected mapping from node-type name to
//     handler and from condition ID to boolean evaluator. Safe for
//     concurrent lookups during overlapping compiles.
//   - Parser: converts a raw JSON/YAML document into the IR (Workflow,
//     Node, Edge), failing fast with path-tagged ParseErrors. Shape and
//     type correctness only.
//   - Validator: proves structural soundness of the IR against the
//     registry (reference integrity, reachability, handler coverage,
//     type-specific configuration) and accumulates every issue into one
//     ValidationResult instead of raising.
//   - Compiler: lowers the IR into a CompiledGraph with conditional
//     branching (router and condition nodes) and per-node error
//     isolation, optionally binding a checkpoint substrate.
//
// The Runner steps a compiled graph node by node: handler failures are
// recorded into the shared ExecutionState and execution continues to
// whatever edge follows, so one bad node does not abort a run it might
// still be able to route around.
//
// Typical usage:
//
//	reg := workflow.NewRegistry()
//	handlers.Register(reg)
//
//	w, err := workflow.ParseJSON(document)
//	if err != nil {
//	    return err
//	}
//
//	compiler := workflow.NewCompiler(reg, workflow.WithCheckpointStore(store))
//	result, err := compiler.Compile(w, true)
//	if err != nil {
//	    return err
//	}
//
//	state := workflow.NewExecutionState(w.ID, w.TenantID, userID, input)
//	final, err := workflow.NewRunner().Run(ctx, result.Graph, state)
package workflow
