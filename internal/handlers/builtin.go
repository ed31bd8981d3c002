// Package handlers provides the built-in node handler set and the
// explicit startup routine that registers it. Handlers register through
// Register rather than import side effects, so the set of available node
// types never depends on import order and per-tenant or per-test
// registries stay trivial.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/curatedhealth/vitalflow/internal/workflow"
)

// webhookTimeout bounds a single webhook delivery.
const webhookTimeout = 10 * time.Second

// Start marks the beginning of an execution. It seeds the execution
// context from the input so downstream handlers see the initial payload.
func Start(_ context.Context, state *workflow.ExecutionState, _ map[string]any) (*workflow.ExecutionState, error) {
	for k, v := range state.Input {
		if _, exists := state.Context[k]; !exists {
			state.Context[k] = v
		}
	}
	return state, nil
}

// End marks the end of an execution. It promotes the accumulated context
// into the output when no handler produced one explicitly.
func End(_ context.Context, state *workflow.ExecutionState, _ map[string]any) (*workflow.ExecutionState, error) {
	if state.Output == nil {
		state.Output = map[string]any{}
		for k, v := range state.Context {
			state.Output[k] = v
		}
	}
	return state, nil
}

// Router performs no work of its own: a router node's behavior lives
// entirely in its compiled conditional edge.
func Router(_ context.Context, state *workflow.ExecutionState, _ map[string]any) (*workflow.ExecutionState, error) {
	return state, nil
}

// Condition performs no work of its own; the compiled binary edge reads
// the condition result a prior node stored in state.
func Condition(_ context.Context, state *workflow.ExecutionState, _ map[string]any) (*workflow.ExecutionState, error) {
	return state, nil
}

// Expert records the invocation of a configured expert agent into the
// message log. The business semantics of the agent call live outside the
// translator; this handler keeps the contract observable.
func Expert(_ context.Context, state *workflow.ExecutionState, config map[string]any) (*workflow.ExecutionState, error) {
	agentID, _ := config["agentId"].(string)
	if agentID == "" {
		return nil, fmt.Errorf("expert node has no agentId configured")
	}
	mode, _ := config["mode"].(string)

	state.AppendMessage(map[string]any{
		"role":    "assistant",
		"agentId": agentID,
		"mode":    mode,
		"nodeId":  state.CurrentNodeID,
	})
	return state, nil
}

// Webhook delivers the execution context to a configured URL as a JSON
// POST. A non-2xx response is a handler error; the compiled wrapper
// records it into the state and the run continues.
func Webhook(ctx context.Context, state *workflow.ExecutionState, config map[string]any) (*workflow.ExecutionState, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("webhook node has no url configured")
	}

	payload, err := json.Marshal(map[string]any{
		"workflowId":  state.WorkflowID,
		"executionId": state.ExecutionID,
		"nodeId":      state.CurrentNodeID,
		"context":     state.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	state.AppendMessage(map[string]any{
		"role":   "system",
		"event":  "webhook_delivered",
		"url":    url,
		"status": resp.StatusCode,
	})
	return state, nil
}
