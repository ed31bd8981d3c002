package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curatedhealth/vitalflow/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Validate a canvas workflow document",
	Long: `Validate parses a canvas document and checks its graph structure:
reference integrity, reachability, handler coverage, and node-type
specific configuration. The full report is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	w, err := readDocument(args[0])
	if err != nil {
		return err
	}

	result := workflow.NewValidator().Validate(w, newRegistry())

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize validation report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !result.IsValid {
		return fmt.Errorf("workflow %q is invalid: %d error(s)", w.ID, len(result.Errors()))
	}
	return nil
}
