package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/chat-bridge/internal/config"
	"github.com/Davincible/chat-bridge/internal/providers"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the chat bridge configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize configuration by prompting for provider details.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for errors.`,
	RunE:  runConfigValidate,
}

func init() {
	configInitCmd.Flags().Bool("yaml", false, "write a commented config.yaml instead of prompting")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func prompt(reader *bufio.Reader, label, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", label, fallback)
	} else {
		fmt.Printf("%s: ", label)
	}

	value, _ := reader.ReadString('\n')
	value = strings.TrimSpace(value)

	if value == "" {
		return fallback
	}

	return value
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		if err := cfgMgr.CreateExampleYAML(); err != nil {
			return fmt.Errorf("failed to write example configuration: %w", err)
		}

		color.Green("Example configuration written to: %s", cfgMgr.GetPath())

		return nil
	}

	color.Blue("Chat Bridge Configuration Setup")
	color.Yellow("Follow the prompts to configure your providers.")

	reader := bufio.NewReader(os.Stdin)

	providerName := prompt(reader, "\nProvider (claude, openai)", string(providers.ProviderClaude))

	kind, err := providers.ParseProviderKind(providerName)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Provider = string(kind)

	if kind == providers.ProviderOpenAI {
		cfg.OpenAIURL = prompt(reader, "OpenAI-compatible Base URL", cfg.OpenAIURL)
	} else {
		cfg.APIURL = prompt(reader, "Anthropic Base URL", cfg.APIURL)
	}

	cfg.Model = prompt(reader, "Default Model", cfg.Model)

	apiKey := prompt(reader, "API Key (stored in .env)", "")

	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	// Save configuration
	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if apiKey != "" {
		if err := config.SaveKey(baseDir, string(kind), apiKey); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.GetPath())
	color.Cyan("You can now start chatting with: cb chat -i")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run 'cb config init' to create one.")
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	secrets, err := config.NewEnvSecrets(baseDir)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-15s: %s\n", "Provider", orAuto(cfg.Provider))
	fmt.Printf("  %-15s: %s\n", "API URL", cfg.APIURL)
	fmt.Printf("  %-15s: %s\n", "OpenAI URL", cfg.OpenAIURL)
	fmt.Printf("  %-15s: %s\n", "Model", cfg.Model)
	fmt.Printf("  %-15s: %d\n", "Max Tokens", cfg.MaxTokens)
	fmt.Printf("  %-15s: %v\n", "Tools", cfg.ToolsEnabled())
	fmt.Printf("  %-15s: %s\n", "Claude Key", maskString(secrets.APIKey("claude")))
	fmt.Printf("  %-15s: %s\n", "OpenAI Key", maskString(secrets.APIKey("openai")))
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())

	if cfg.System != "" {
		fmt.Printf("  %-15s: %s\n", "System", cfg.System)
	}
	if cfg.Temperature != nil {
		fmt.Printf("  %-15s: %g\n", "Temperature", *cfg.Temperature)
	}
	if cfg.TopP != nil {
		fmt.Printf("  %-15s: %g\n", "Top P", *cfg.TopP)
	}
	if cfg.TopK != nil {
		fmt.Printf("  %-15s: %d\n", "Top K", *cfg.TopK)
	}
	if len(cfg.StopSequences) > 0 {
		fmt.Printf("  %-15s: %v\n", "Stop", cfg.StopSequences)
	}
	if cfg.ToolChoice != "" {
		fmt.Printf("  %-15s: %s\n", "Tool Choice", cfg.ToolChoice)
	}

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		return fmt.Errorf("no configuration found")
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		color.Red("Configuration validation failed:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("configuration validation failed")
	}

	color.Green("Configuration is valid!")
	return nil
}

func orAuto(s string) string {
	if s == "" {
		return "(detect from API URL)"
	}
	return s
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
