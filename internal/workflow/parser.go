package workflow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawDocument is a decoded canvas document: a nested map/array structure
// as produced by encoding/json or yaml.v3.
type RawDocument = map[string]any

// fieldKind names the document-level kinds the parser distinguishes when
// reporting type mismatches.
type fieldKind string

const (
	kindString  fieldKind = "string"
	kindNumber  fieldKind = "number"
	kindBoolean fieldKind = "boolean"
	kindList    fieldKind = "list"
	kindMap     fieldKind = "map"
)

// kindOf classifies a decoded value for error messages.
func kindOf(v any) fieldKind {
	switch v.(type) {
	case string:
		return kindString
	case bool:
		return kindBoolean
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindNumber
	case []any:
		return kindList
	case map[string]any:
		return kindMap
	case nil:
		return "null"
	default:
		return fieldKind(fmt.Sprintf("%T", v))
	}
}

// joinPath appends a field name to a dotted document path.
func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// requireField fails fast with a ParseError identifying the exact document
// path of the offending field, distinguishing expected kind from actual.
func requireField(doc map[string]any, name string, expected fieldKind, path string) (any, error) {
	v, ok := doc[name]
	if !ok || v == nil {
		return nil, &ParseError{
			Message: fmt.Sprintf("required field %q is missing", name),
			Path:    joinPath(path, name),
		}
	}
	if actual := kindOf(v); actual != expected {
		return nil, &ParseError{
			Message: fmt.Sprintf("field %q must be a %s, got %s", name, expected, actual),
			Path:    joinPath(path, name),
		}
	}
	return v, nil
}

// requireString is requireField specialized to string fields.
func requireString(doc map[string]any, name, path string) (string, error) {
	v, err := requireField(doc, name, kindString, path)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// requireList is requireField specialized to list fields.
func requireList(doc map[string]any, name, path string) ([]any, error) {
	v, err := requireField(doc, name, kindList, path)
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

// optionalString returns the string value of an optional field, or the
// fallback when absent. A present non-string value is a type error.
func optionalString(doc map[string]any, name, path, fallback string) (string, error) {
	v, ok := doc[name]
	if !ok || v == nil {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ParseError{
			Message: fmt.Sprintf("field %q must be a %s, got %s", name, kindString, kindOf(v)),
			Path:    joinPath(path, name),
		}
	}
	return s, nil
}

// optionalMap returns the map value of an optional field, defaulting to an
// empty map when absent.
func optionalMap(doc map[string]any, name, path string) (map[string]any, error) {
	v, ok := doc[name]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("field %q must be a %s, got %s", name, kindMap, kindOf(v)),
			Path:    joinPath(path, name),
		}
	}
	return m, nil
}

// numberValue converts any decoded numeric value to float64. JSON decodes
// numbers as float64, YAML as int or float64.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ParseJSON decodes a JSON canvas document and parses it.
func ParseJSON(data []byte) (*Workflow, error) {
	var doc RawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: "invalid JSON document", Err: err}
	}
	return Parse(doc)
}

// ParseYAML decodes a YAML canvas document and parses it.
func ParseYAML(data []byte) (*Workflow, error) {
	var doc RawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: "invalid YAML document", Err: err}
	}
	return Parse(doc)
}

// Parse converts a raw canvas document into the workflow IR. It concerns
// itself only with shape and type correctness: cross-referential checks
// (entry node exists, edge endpoints resolve) belong to the validator.
//
// Parsing the same document twice yields structurally equal workflows.
func Parse(doc RawDocument) (w *Workflow, err error) {
	// Anything that escapes the field helpers untyped is still reported
	// as a ParseError, never as a raw panic.
	defer func() {
		if r := recover(); r != nil {
			w = nil
			err = &ParseError{Message: fmt.Sprintf("internal parser failure: %v", r)}
		}
	}()

	if doc == nil {
		return nil, &ParseError{Message: "document is empty"}
	}

	id, err := requireString(doc, "id", "")
	if err != nil {
		return nil, err
	}
	name, err := requireString(doc, "name", "")
	if err != nil {
		return nil, err
	}
	tenantID, err := requireString(doc, "tenantId", "")
	if err != nil {
		return nil, err
	}
	entryNodeID, err := requireString(doc, "entryNodeId", "")
	if err != nil {
		return nil, err
	}

	rawExits, err := requireList(doc, "exitNodeIds", "")
	if err != nil {
		return nil, err
	}
	exitNodeIDs := make([]string, 0, len(rawExits))
	for i, v := range rawExits {
		s, ok := v.(string)
		if !ok {
			return nil, &ParseError{
				Message: fmt.Sprintf("exit node id must be a %s, got %s", kindString, kindOf(v)),
				Path:    fmt.Sprintf("exitNodeIds[%d]", i),
			}
		}
		exitNodeIDs = append(exitNodeIDs, s)
	}

	rawNodes, err := requireList(doc, "nodes", "")
	if err != nil {
		return nil, err
	}
	rawEdges, err := requireList(doc, "edges", "")
	if err != nil {
		return nil, err
	}

	description, err := optionalString(doc, "description", "", "")
	if err != nil {
		return nil, err
	}
	version, err := optionalString(doc, "version", "", "1.0.0")
	if err != nil {
		return nil, err
	}
	executionSettings, err := optionalMap(doc, "executionSettings", "")
	if err != nil {
		return nil, err
	}
	globalVariables, err := optionalMap(doc, "globalVariables", "")
	if err != nil {
		return nil, err
	}
	metadata, err := optionalMap(doc, "metadata", "")
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(rawNodes))
	for i, raw := range rawNodes {
		node, err := parseNode(raw, i)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	edges := make([]Edge, 0, len(rawEdges))
	for i, raw := range rawEdges {
		edge, err := parseEdge(raw, i)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}

	return &Workflow{
		ID:                id,
		Name:              name,
		Description:       description,
		Version:           version,
		Nodes:             nodes,
		Edges:             edges,
		EntryNodeID:       entryNodeID,
		ExitNodeIDs:       exitNodeIDs,
		ExecutionSettings: executionSettings,
		GlobalVariables:   globalVariables,
		TenantID:          tenantID,
		Metadata:          metadata,
	}, nil
}

// parseNode parses one raw node at index i. Errors reference nodes[i].
func parseNode(raw any, i int) (Node, error) {
	path := fmt.Sprintf("nodes[%d]", i)

	m, ok := raw.(map[string]any)
	if !ok {
		return Node{}, &ParseError{
			Message: fmt.Sprintf("node must be a %s, got %s", kindMap, kindOf(raw)),
			Path:    path,
		}
	}

	id, err := requireString(m, "id", path)
	if err != nil {
		return Node{}, err
	}
	nodeType, err := requireString(m, "type", path)
	if err != nil {
		return Node{}, err
	}

	position, err := parsePosition(m, path)
	if err != nil {
		return Node{}, err
	}

	data, err := optionalMap(m, "data", path)
	if err != nil {
		return Node{}, err
	}
	label, err := optionalString(m, "label", path, "")
	if err != nil {
		return Node{}, err
	}

	return Node{
		ID:       id,
		Type:     nodeType,
		Position: position,
		Data:     data,
		Label:    label,
	}, nil
}

// parsePosition extracts a node's canvas position. Missing coordinates
// default to 0.
func parsePosition(m map[string]any, path string) (Position, error) {
	raw, ok := m["position"]
	if !ok || raw == nil {
		return Position{}, nil
	}

	pm, ok := raw.(map[string]any)
	if !ok {
		return Position{}, &ParseError{
			Message: fmt.Sprintf("field %q must be a %s, got %s", "position", kindMap, kindOf(raw)),
			Path:    joinPath(path, "position"),
		}
	}

	var pos Position
	if v, ok := pm["x"]; ok && v != nil {
		x, ok := numberValue(v)
		if !ok {
			return Position{}, &ParseError{
				Message: fmt.Sprintf("field %q must be a %s, got %s", "x", kindNumber, kindOf(v)),
				Path:    joinPath(path, "position.x"),
			}
		}
		pos.X = x
	}
	if v, ok := pm["y"]; ok && v != nil {
		y, ok := numberValue(v)
		if !ok {
			return Position{}, &ParseError{
				Message: fmt.Sprintf("field %q must be a %s, got %s", "y", kindNumber, kindOf(v)),
				Path:    joinPath(path, "position.y"),
			}
		}
		pos.Y = y
	}
	return pos, nil
}

// parseEdge parses one raw edge at index i. Errors reference edges[i].
func parseEdge(raw any, i int) (Edge, error) {
	path := fmt.Sprintf("edges[%d]", i)

	m, ok := raw.(map[string]any)
	if !ok {
		return Edge{}, &ParseError{
			Message: fmt.Sprintf("edge must be a %s, got %s", kindMap, kindOf(raw)),
			Path:    path,
		}
	}

	id, err := requireString(m, "id", path)
	if err != nil {
		return Edge{}, err
	}
	source, err := requireString(m, "source", path)
	if err != nil {
		return Edge{}, err
	}
	target, err := requireString(m, "target", path)
	if err != nil {
		return Edge{}, err
	}

	sourceHandle, err := optionalString(m, "sourceHandle", path, "")
	if err != nil {
		return Edge{}, err
	}
	targetHandle, err := optionalString(m, "targetHandle", path, "")
	if err != nil {
		return Edge{}, err
	}
	label, err := optionalString(m, "label", path, "")
	if err != nil {
		return Edge{}, err
	}
	edgeType, err := optionalString(m, "type", path, DefaultEdgeType)
	if err != nil {
		return Edge{}, err
	}
	data, err := optionalMap(m, "data", path)
	if err != nil {
		return Edge{}, err
	}

	return Edge{
		ID:           id,
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Type:         edgeType,
		Label:        label,
		Data:         data,
	}, nil
}
