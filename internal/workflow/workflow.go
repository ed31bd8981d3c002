package workflow

// Well-known node types. Node.Type is an open-ended tag: any string with a
// registered handler is a valid type. These constants name the types the
// validator and compiler give special treatment.
const (
	NodeTypeStart     = "start"
	NodeTypeEnd       = "end"
	NodeTypeRouter    = "router"
	NodeTypeCondition = "condition"
	NodeTypeExpert    = "expert"
	NodeTypeWebhook   = "webhook"
)

// DefaultEdgeType is the edge type assigned when a document omits one.
const DefaultEdgeType = "default"

// Position is the canvas coordinate of a node. It is decorative only:
// carried through parsing but never read by the compiler.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one step in the workflow graph. Its Type selects the handler
// that performs the node's work; Data carries the handler's configuration.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
	Label    string         `json:"label,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Type         string         `json:"type"`
	Label        string         `json:"label,omitempty"`
	Data         map[string]any `json:"data"`
}

// Workflow is the intermediate representation of a visually-authored
// workflow. It is constructed once by the parser from an immutable input
// document and is read-only thereafter: the validator and compiler only
// read it.
type Workflow struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	Version           string         `json:"version"`
	Nodes             []Node         `json:"nodes"`
	Edges             []Edge         `json:"edges"`
	EntryNodeID       string         `json:"entryNodeId"`
	ExitNodeIDs       []string       `json:"exitNodeIds"`
	ExecutionSettings map[string]any `json:"executionSettings"`
	GlobalVariables   map[string]any `json:"globalVariables"`
	TenantID          string         `json:"tenantId"`
	Metadata          map[string]any `json:"metadata"`
}

// GetNode retrieves a node by ID. Returns nil if the node is not found.
func (w *Workflow) GetNode(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// NodeIndex builds a lookup table from node ID to node.
func (w *Workflow) NodeIndex() map[string]*Node {
	index := make(map[string]*Node, len(w.Nodes))
	for i := range w.Nodes {
		index[w.Nodes[i].ID] = &w.Nodes[i]
	}
	return index
}

// OutgoingEdges returns the edges whose source is the given node,
// in document order.
func (w *Workflow) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range w.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// RouterCondition is one entry of a router node's ordered condition list.
// Expression references a condition evaluator by ID in the registry.
type RouterCondition struct {
	Expression   string `json:"expression"`
	TargetNodeID string `json:"targetNodeId"`
}

// RouterConditions extracts the ordered condition list from a router
// node's data. Malformed entries are dropped; order is preserved.
func RouterConditions(data map[string]any) []RouterCondition {
	raw, ok := data["conditions"].([]any)
	if !ok {
		return nil
	}

	conditions := make([]RouterCondition, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		expr, _ := m["expression"].(string)
		target, _ := m["targetNodeId"].(string)
		if expr == "" && target == "" {
			continue
		}
		conditions = append(conditions, RouterCondition{
			Expression:   expr,
			TargetNodeID: target,
		})
	}
	return conditions
}
