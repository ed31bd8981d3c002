package workflow

import "fmt"

// Severity classifies a validation issue. Only ERROR-severity issues make
// a workflow invalid; warnings and infos never do.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Validation issue codes. Each independent check contributes its own
// codes; the set produced for a workflow does not depend on check order.
const (
	CodeMissingEntryNodeID    = "MISSING_ENTRY_NODE_ID"
	CodeEntryNodeNotFound     = "ENTRY_NODE_NOT_FOUND"
	CodeEntryNodeNotStart     = "ENTRY_NODE_NOT_START"
	CodeMissingExitNodes      = "MISSING_EXIT_NODES"
	CodeExitNodeNotFound      = "EXIT_NODE_NOT_FOUND"
	CodeExitNodeNotEnd        = "EXIT_NODE_NOT_END"
	CodeInvalidEdgeSource     = "INVALID_EDGE_SOURCE"
	CodeInvalidEdgeTarget     = "INVALID_EDGE_TARGET"
	CodeSelfLoop              = "SELF_LOOP"
	CodeUnknownNodeType       = "UNKNOWN_NODE_TYPE"
	CodeUnreachableNode       = "UNREACHABLE_NODE"
	CodeOrphanNode            = "ORPHAN_NODE"
	CodeExpertMissingAgent    = "EXPERT_MISSING_AGENT"
	CodeExpertMissingMode     = "EXPERT_MISSING_MODE"
	CodeRouterNoConditions    = "ROUTER_NO_CONDITIONS"
	CodeRouterNoDefault       = "ROUTER_NO_DEFAULT"
	CodeRouterUnknownCond     = "ROUTER_UNKNOWN_CONDITION"
	CodeWebhookNoURL          = "WEBHOOK_NO_URL"
)

// ValidationIssue is one structural or semantic problem found in a
// workflow. Issues are carried as data rather than raised, so a caller
// sees every applicable problem in one pass.
type ValidationIssue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	NodeID   string   `json:"nodeId,omitempty"`
	EdgeID   string   `json:"edgeId,omitempty"`
}

// ValidationResult aggregates all issues found by a validation pass.
// IsValid flips to false the moment any ERROR-severity issue is added.
//
// The wire name of the issue list is "errors" even though it includes all
// severities; existing authoring UIs depend on that name.
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Issues  []ValidationIssue `json:"errors"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		IsValid: true,
		Issues:  []ValidationIssue{},
	}
}

// Add appends an issue, updating IsValid when its severity is ERROR.
func (r *ValidationResult) Add(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.IsValid = false
	}
}

// Errors returns only the ERROR-severity issues.
func (r *ValidationResult) Errors() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns only the WARNING-severity issues.
func (r *ValidationResult) Warnings() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// Validator proves structural soundness of a workflow IR: reference
// integrity, reachability, handler coverage, and type-specific
// configuration. It is stateless; all checks are independent and
// commutative, contributing to one shared result.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every check against the workflow and the registry and
// returns the accumulated result. It never raises: structural problems
// are data, not errors.
func (v *Validator) Validate(w *Workflow, registry *Registry) *ValidationResult {
	result := NewValidationResult()
	index := w.NodeIndex()

	v.checkEntryNode(w, index, result)
	v.checkExitNodes(w, index, result)
	v.checkEdgeReferences(w, index, result)
	v.checkHandlerCoverage(w, registry, result)
	v.checkConnectivity(w, index, result)
	v.checkOrphans(w, result)
	v.checkNodeConfig(w, registry, result)

	return result
}

func (v *Validator) checkEntryNode(w *Workflow, index map[string]*Node, result *ValidationResult) {
	if w.EntryNodeID == "" {
		result.Add(ValidationIssue{
			Code:     CodeMissingEntryNodeID,
			Message:  "workflow has no entry node id",
			Severity: SeverityError,
		})
		return
	}

	node, ok := index[w.EntryNodeID]
	if !ok {
		result.Add(ValidationIssue{
			Code:     CodeEntryNodeNotFound,
			Message:  fmt.Sprintf("entry node %q does not exist", w.EntryNodeID),
			Severity: SeverityError,
			NodeID:   w.EntryNodeID,
		})
		return
	}

	if node.Type != NodeTypeStart {
		result.Add(ValidationIssue{
			Code:     CodeEntryNodeNotStart,
			Message:  fmt.Sprintf("entry node %q has type %q, expected %q", w.EntryNodeID, node.Type, NodeTypeStart),
			Severity: SeverityWarning,
			NodeID:   w.EntryNodeID,
		})
	}
}

func (v *Validator) checkExitNodes(w *Workflow, index map[string]*Node, result *ValidationResult) {
	if len(w.ExitNodeIDs) == 0 {
		result.Add(ValidationIssue{
			Code:     CodeMissingExitNodes,
			Message:  "workflow has no exit nodes",
			Severity: SeverityError,
		})
		return
	}

	for _, id := range w.ExitNodeIDs {
		node, ok := index[id]
		if !ok {
			result.Add(ValidationIssue{
				Code:     CodeExitNodeNotFound,
				Message:  fmt.Sprintf("exit node %q does not exist", id),
				Severity: SeverityError,
				NodeID:   id,
			})
			continue
		}
		if node.Type != NodeTypeEnd {
			result.Add(ValidationIssue{
				Code:     CodeExitNodeNotEnd,
				Message:  fmt.Sprintf("exit node %q has type %q, expected %q", id, node.Type, NodeTypeEnd),
				Severity: SeverityWarning,
				NodeID:   id,
			})
		}
	}
}

func (v *Validator) checkEdgeReferences(w *Workflow, index map[string]*Node, result *ValidationResult) {
	for _, edge := range w.Edges {
		if _, ok := index[edge.Source]; !ok {
			result.Add(ValidationIssue{
				Code:     CodeInvalidEdgeSource,
				Message:  fmt.Sprintf("edge %q references non-existent source node %q", edge.ID, edge.Source),
				Severity: SeverityError,
				EdgeID:   edge.ID,
			})
		}
		if _, ok := index[edge.Target]; !ok {
			result.Add(ValidationIssue{
				Code:     CodeInvalidEdgeTarget,
				Message:  fmt.Sprintf("edge %q references non-existent target node %q", edge.ID, edge.Target),
				Severity: SeverityError,
				EdgeID:   edge.ID,
			})
		}
		if edge.Source == edge.Target {
			result.Add(ValidationIssue{
				Code:     CodeSelfLoop,
				Message:  fmt.Sprintf("edge %q loops node %q onto itself", edge.ID, edge.Source),
				Severity: SeverityWarning,
				EdgeID:   edge.ID,
			})
		}
	}
}

func (v *Validator) checkHandlerCoverage(w *Workflow, registry *Registry, result *ValidationResult) {
	for _, node := range w.Nodes {
		if !registry.HasHandler(node.Type) {
			result.Add(ValidationIssue{
				Code:     CodeUnknownNodeType,
				Message:  fmt.Sprintf("node %q has type %q with no registered handler", node.ID, node.Type),
				Severity: SeverityError,
				NodeID:   node.ID,
			})
		}
	}
}

// checkConnectivity walks the graph breadth-first from the entry node
// following outgoing edges and reports every node it never reaches. No
// traversal is attempted without an entry node; the entry checks already
// cover that case.
func (v *Validator) checkConnectivity(w *Workflow, index map[string]*Node, result *ValidationResult) {
	if w.EntryNodeID == "" {
		return
	}
	if _, ok := index[w.EntryNodeID]; !ok {
		return
	}

	visited := map[string]bool{w.EntryNodeID: true}
	queue := []string{w.EntryNodeID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range w.Edges {
			if edge.Source != current || visited[edge.Target] {
				continue
			}
			if _, ok := index[edge.Target]; !ok {
				continue
			}
			visited[edge.Target] = true
			queue = append(queue, edge.Target)
		}
	}

	for _, node := range w.Nodes {
		if !visited[node.ID] {
			result.Add(ValidationIssue{
				Code:     CodeUnreachableNode,
				Message:  fmt.Sprintf("node %q is not reachable from the entry node", node.ID),
				Severity: SeverityWarning,
				NodeID:   node.ID,
			})
		}
	}
}

// checkOrphans reports nodes on no edge at all. Start and end nodes are
// exempt: they are permitted to be unconnected on one side.
func (v *Validator) checkOrphans(w *Workflow, result *ValidationResult) {
	connected := make(map[string]bool)
	for _, edge := range w.Edges {
		connected[edge.Source] = true
		connected[edge.Target] = true
	}

	for _, node := range w.Nodes {
		if connected[node.ID] {
			continue
		}
		if node.Type == NodeTypeStart || node.Type == NodeTypeEnd {
			continue
		}
		result.Add(ValidationIssue{
			Code:     CodeOrphanNode,
			Message:  fmt.Sprintf("node %q is not connected to any edge", node.ID),
			Severity: SeverityWarning,
			NodeID:   node.ID,
		})
	}
}

// checkNodeConfig runs type-specific configuration checks. The list is
// extensible by node type; unknown types are skipped here because handler
// coverage is enforced separately.
func (v *Validator) checkNodeConfig(w *Workflow, registry *Registry, result *ValidationResult) {
	for _, node := range w.Nodes {
		switch node.Type {
		case NodeTypeExpert:
			v.checkExpertNode(node, result)
		case NodeTypeRouter:
			v.checkRouterNode(node, registry, result)
		case NodeTypeWebhook:
			v.checkWebhookNode(node, result)
		}
	}
}

func (v *Validator) checkExpertNode(node Node, result *ValidationResult) {
	if s, _ := node.Data["agentId"].(string); s == "" {
		result.Add(ValidationIssue{
			Code:     CodeExpertMissingAgent,
			Message:  fmt.Sprintf("expert node %q has no agentId", node.ID),
			Severity: SeverityError,
			NodeID:   node.ID,
		})
	}
	if s, _ := node.Data["mode"].(string); s == "" {
		result.Add(ValidationIssue{
			Code:     CodeExpertMissingMode,
			Message:  fmt.Sprintf("expert node %q has no mode", node.ID),
			Severity: SeverityWarning,
			NodeID:   node.ID,
		})
	}
}

func (v *Validator) checkRouterNode(node Node, registry *Registry, result *ValidationResult) {
	conditions := RouterConditions(node.Data)
	if len(conditions) == 0 {
		result.Add(ValidationIssue{
			Code:     CodeRouterNoConditions,
			Message:  fmt.Sprintf("router node %q has no conditions", node.ID),
			Severity: SeverityError,
			NodeID:   node.ID,
		})
	}
	if s, _ := node.Data["defaultTargetNodeId"].(string); s == "" {
		result.Add(ValidationIssue{
			Code:     CodeRouterNoDefault,
			Message:  fmt.Sprintf("router node %q has no default target", node.ID),
			Severity: SeverityError,
			NodeID:   node.ID,
		})
	}

	// Unregistered condition ids are skipped silently at run time; surface
	// them here so configuration typos are visible before execution.
	for _, c := range conditions {
		if c.Expression == "" || registry.HasCondition(c.Expression) {
			continue
		}
		result.Add(ValidationIssue{
			Code:     CodeRouterUnknownCond,
			Message:  fmt.Sprintf("router node %q references unregistered condition %q", node.ID, c.Expression),
			Severity: SeverityWarning,
			NodeID:   node.ID,
		})
	}
}

func (v *Validator) checkWebhookNode(node Node, result *ValidationResult) {
	if s, _ := node.Data["url"].(string); s == "" {
		result.Add(ValidationIssue{
			Code:     CodeWebhookNoURL,
			Message:  fmt.Sprintf("webhook node %q has no url", node.ID),
			Severity: SeverityError,
			NodeID:   node.ID,
		})
	}
}
