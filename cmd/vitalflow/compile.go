package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curatedhealth/vitalflow/internal/workflow"
)

var skipValidation bool

var compileCmd = &cobra.Command{
	Use:   "compile <document>",
	Short: "Compile a canvas workflow document into an executable graph",
	Long: `Compile parses a canvas document, validates it, and lowers it into
an executable graph. The compile report, including the validation
result, is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().BoolVar(&skipValidation, "skip-validation", false,
		"compile without running the validator first")
}

func runCompile(cmd *cobra.Command, args []string) error {
	w, err := readDocument(args[0])
	if err != nil {
		return err
	}

	compiler := workflow.NewCompiler(newRegistry())
	result, compileErr := compiler.Compile(w, !skipValidation)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize compile report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return compileErr
}
