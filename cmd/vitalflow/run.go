package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curatedhealth/vitalflow/internal/workflow"
)

var (
	runInputPath string
	runUserID    string
)

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Compile and execute a canvas workflow document",
	Long: `Run parses, validates, and compiles a canvas document, then executes
the resulting graph from its entry node with the configured checkpoint
store. The final execution state is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInputPath, "input", "", "path to a JSON file with the initial input map")
	runCmd.Flags().StringVar(&runUserID, "user", "", "user id recorded on the execution")
}

func runRun(cmd *cobra.Command, args []string) error {
	w, err := readDocument(args[0])
	if err != nil {
		return err
	}

	input := map[string]any{}
	if runInputPath != "" {
		data, err := os.ReadFile(runInputPath)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("failed to parse input file: %w", err)
		}
	}

	store, closeStore, err := newStore()
	if err != nil {
		return err
	}
	defer closeStore()

	compiler := workflow.NewCompiler(newRegistry(), workflow.WithCheckpointStore(store))
	result, err := compiler.Compile(w, true)
	if err != nil {
		if result != nil && result.Validation != nil {
			report, _ := json.MarshalIndent(result.Validation, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(report))
		}
		return err
	}

	runner := workflow.NewRunner(workflow.WithMaxSteps(engineCfg.Runner.MaxSteps))
	state := workflow.NewExecutionState(w.ID, w.TenantID, runUserID, input)

	final, err := runner.Run(cmd.Context(), result.Graph, state)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize execution state: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
