package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/chat-bridge/internal/config"
	"github.com/Davincible/chat-bridge/internal/providers"
)

const (
	AppName = "chat-bridge"
	Version = "0.3.0"
)

var (
	logger  *slog.Logger
	homeDir string
	baseDir string
	cfgMgr  *config.Manager
)

func init() {
	// Initialize logger
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	logger = slog.New(handler)

	// Setup directories
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		logger.Error("Failed to get home directory", "error", err)
		os.Exit(1)
	}

	baseDir = filepath.Join(homeDir, "."+AppName)
	cfgMgr = config.NewManager(baseDir)
}

var rootCmd = &cobra.Command{
	Use:     "cb",
	Short:   "Chat Bridge - chat with Claude and OpenAI-compatible models",
	Long:    `A terminal chat client that talks to Anthropic Messages and OpenAI Chat Completions backends, streams replies and surfaces tool calls.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(providerCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging keeps stdout for replies; logs go to stderr.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
}

// newRouter wires both clients to the config manager and the .env secrets.
func newRouter(settings providers.Settings) (*providers.Router, error) {
	secrets, err := config.NewEnvSecrets(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	registry := providers.NewRegistry()
	registry.Initialize(settings, secrets, providers.WithLogger(logger))

	return providers.NewRouter(registry, settings, logger), nil
}
