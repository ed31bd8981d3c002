package workflow

import (
	"context"
	"log/slog"
	"sync"
)

// Handler performs the actual work of one node at run time. It receives
// the shared execution state and the node's data map, and returns the
// (possibly partial) state to merge back. Handlers may call out to
// external services; they get a context for cancellation.
type Handler func(ctx context.Context, state *ExecutionState, config map[string]any) (*ExecutionState, error)

// ConditionFn evaluates a routing condition against the current state.
// It must be pure with respect to the state: no mutation.
type ConditionFn func(state *ExecutionState) bool

// HandlerMetadata carries descriptive information recorded alongside a
// handler registration.
type HandlerMetadata map[string]any

// Registry maps node-type names to handlers and condition IDs to boolean
// evaluators. The two namespaces are independent. Registration typically
// happens once at startup; lookups happen concurrently during validation
// and compilation of overlapping workflows, so all access is guarded.
//
// A Registry is an explicit, constructed value passed into Validate and
// Compile call sites. There is no package-level instance.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]Handler
	metadata   map[string]HandlerMetadata
	conditions map[string]ConditionFn
	logger     *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the structured logger used for registration
// warnings.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty handler/condition registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers:   make(map[string]Handler),
		metadata:   make(map[string]HandlerMetadata),
		conditions: make(map[string]ConditionFn),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterHandler stores a handler under a node-type name. Re-registration
// of the same type overwrites the previous handler and logs a warning:
// it is a normal hot-reload pattern, never a hard failure.
func (r *Registry) RegisterHandler(nodeType string, handler Handler, metadata HandlerMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[nodeType]; exists {
		r.logger.Warn("overwriting registered node handler", "node_type", nodeType)
	}
	r.handlers[nodeType] = handler
	if metadata == nil {
		metadata = HandlerMetadata{}
	}
	r.metadata[nodeType] = metadata
}

// RegisterCondition stores a condition evaluator under an ID, in a
// namespace separate from node types. Same overwrite-and-warn semantics
// as RegisterHandler.
func (r *Registry) RegisterCondition(conditionID string, evaluator ConditionFn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conditions[conditionID]; exists {
		r.logger.Warn("overwriting registered condition evaluator", "condition_id", conditionID)
	}
	r.conditions[conditionID] = evaluator
}

// GetHandler returns the handler for a node type, or a
// NodeHandlerNotFoundError listing all currently-registered types.
func (r *Registry) GetHandler(nodeType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[nodeType]
	if !ok {
		registered := make([]string, 0, len(r.handlers))
		for t := range r.handlers {
			registered = append(registered, t)
		}
		return nil, &NodeHandlerNotFoundError{NodeType: nodeType, Registered: registered}
	}
	return handler, nil
}

// GetCondition returns the evaluator for a condition ID, or a
// ConditionNotFoundError.
func (r *Registry) GetCondition(conditionID string) (ConditionFn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	evaluator, ok := r.conditions[conditionID]
	if !ok {
		return nil, &ConditionNotFoundError{ConditionID: conditionID}
	}
	return evaluator, nil
}

// HasHandler reports whether a handler is registered for a node type.
func (r *Registry) HasHandler(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.handlers[nodeType]
	return ok
}

// HasCondition reports whether an evaluator is registered for a
// condition ID.
func (r *Registry) HasCondition(conditionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conditions[conditionID]
	return ok
}

// ListHandlers returns a defensive copy of the registered node types and
// their metadata.
func (r *Registry) ListHandlers() map[string]HandlerMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]HandlerMetadata, len(r.metadata))
	for nodeType, meta := range r.metadata {
		copied := make(HandlerMetadata, len(meta))
		for k, v := range meta {
			copied[k] = v
		}
		out[nodeType] = copied
	}
	return out
}

// Clear empties both namespaces. Intended for test isolation only;
// production code must never call it mid-lifecycle.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = make(map[string]Handler)
	r.metadata = make(map[string]HandlerMetadata)
	r.conditions = make(map[string]ConditionFn)
}
