package workflow

import (
	"fmt"
	"strings"
)

// ParseError represents a workflow parsing error. It always carries the
// dotted/bracketed path of the offending field (e.g. "nodes[2].id") so
// authoring tools can point at the exact location in the document.
type ParseError struct {
	// Message is the human-readable error message
	Message string
	// Path is the document path where the error occurred
	Path string
	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NodeHandlerNotFoundError indicates a registry lookup miss for a node
// type. It carries the full list of currently-registered types so a
// caller can spot typos without a second round trip.
type NodeHandlerNotFoundError struct {
	NodeType   string
	Registered []string
}

// Error implements the error interface.
func (e *NodeHandlerNotFoundError) Error() string {
	if len(e.Registered) == 0 {
		return fmt.Sprintf("no handler registered for node type %q (registry is empty)", e.NodeType)
	}
	return fmt.Sprintf("no handler registered for node type %q (registered types: %s)",
		e.NodeType, strings.Join(e.Registered, ", "))
}

// ConditionNotFoundError indicates a registry lookup miss for a condition
// evaluator ID.
type ConditionNotFoundError struct {
	ConditionID string
}

// Error implements the error interface.
func (e *ConditionNotFoundError) Error() string {
	return fmt.Sprintf("no condition evaluator registered for %q", e.ConditionID)
}

// CompilationError represents a failure during graph assembly, optionally
// tagged with the offending node ID.
type CompilationError struct {
	Message string
	NodeID  string
	Cause   error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	if e.NodeID != "" {
		if e.Cause != nil {
			return fmt.Sprintf("compilation failed [node: %s]: %s (caused by: %v)", e.NodeID, e.Message, e.Cause)
		}
		return fmt.Sprintf("compilation failed [node: %s]: %s", e.NodeID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("compilation failed: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("compilation failed: %s", e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// ExecutionError represents a failure in the step engine that makes
// further progress impossible (unknown node, step budget exhausted,
// missing checkpoint). Per-node handler failures are never surfaced this
// way: they are recorded into the execution state instead.
type ExecutionError struct {
	Message string
	NodeID  string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("execution failed [node: %s]: %s", e.NodeID, e.Message)
	}
	return fmt.Sprintf("execution failed: %s", e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
