package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/curatedhealth/vitalflow/internal/checkpoint"
	"github.com/curatedhealth/vitalflow/internal/config"
	"github.com/curatedhealth/vitalflow/internal/handlers"
	"github.com/curatedhealth/vitalflow/internal/workflow"
	"github.com/curatedhealth/vitalflow/pkg/version"
)

var (
	configPath string
	engineCfg  config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vitalflow",
	Short: "vitalflow - workflow canvas translator",
	Long: `vitalflow translates visually-authored workflow descriptions
(nodes and edges on a canvas) into executable, stateful graphs.

It parses a canvas document, validates the graph structure against the
registered node handlers, compiles it into an executable state machine,
and can run it step by step with checkpointing.`,
	Version:           version.String(),
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to engine config file")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(runCmd)
}

// loadConfig runs before any command: it loads the engine configuration
// and installs the structured logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		engineCfg = config.Default()
	} else {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		engineCfg = cfg
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(engineCfg.Logging.Level),
	})))
	return nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newRegistry builds a registry with the built-in handler set.
func newRegistry() *workflow.Registry {
	reg := workflow.NewRegistry()
	handlers.Register(reg)
	return reg
}

// newStore builds the configured checkpoint store.
func newStore() (workflow.CheckpointStore, func(), error) {
	switch engineCfg.Checkpoint.Driver {
	case config.DriverSQLite:
		store, err := checkpoint.OpenSQLite(engineCfg.Checkpoint.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return checkpoint.NewMemory(), func() {}, nil
	}
}

// readDocument loads and parses a canvas document from a JSON or YAML
// file, selected by extension.
func readDocument(path string) (*workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return workflow.ParseYAML(data)
	default:
		return workflow.ParseJSON(data)
	}
}
