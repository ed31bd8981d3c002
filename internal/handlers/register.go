package handlers

import "github.com/curatedhealth/vitalflow/internal/workflow"

// Register installs the built-in handler set into a registry. It is the
// single startup routine for handler registration: call it once per
// registry before validating or compiling workflows.
func Register(reg *workflow.Registry) {
	reg.RegisterHandler(workflow.NodeTypeStart, Start, workflow.HandlerMetadata{
		"description": "marks the beginning of an execution",
	})
	reg.RegisterHandler(workflow.NodeTypeEnd, End, workflow.HandlerMetadata{
		"description": "marks the end of an execution",
	})
	reg.RegisterHandler(workflow.NodeTypeRouter, Router, workflow.HandlerMetadata{
		"description": "routes by an ordered condition list plus default",
	})
	reg.RegisterHandler(workflow.NodeTypeCondition, Condition, workflow.HandlerMetadata{
		"description": "binary branch on a previously computed boolean",
	})
	reg.RegisterHandler(workflow.NodeTypeExpert, Expert, workflow.HandlerMetadata{
		"description": "invokes a configured expert agent",
	})
	reg.RegisterHandler(workflow.NodeTypeWebhook, Webhook, workflow.HandlerMetadata{
		"description": "delivers the execution context to an external URL",
	})
}
