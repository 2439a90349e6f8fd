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

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage the active provider",
	Long:  `Switch between the Claude and OpenAI backends and store their API keys.`,
}

var providerUseCmd = &cobra.Command{
	Use:   "use <claude|openai>",
	Short: "Switch the active provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runProviderUse,
}

var providerKeyCmd = &cobra.Command{
	Use:   "key <claude|openai> [key]",
	Short: "Store an API key",
	Long:  `Store an API key in the .env file of the config directory. The key is read from stdin when omitted.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runProviderKey,
}

func init() {
	providerCmd.AddCommand(providerUseCmd)
	providerCmd.AddCommand(providerKeyCmd)
}

func runProviderUse(cmd *cobra.Command, args []string) error {
	kind, err := providers.ParseProviderKind(args[0])
	if err != nil {
		return err
	}

	router, err := newRouter(cfgMgr)
	if err != nil {
		return err
	}

	if err := router.Switch(kind); err != nil {
		return fmt.Errorf("failed to switch provider: %w", err)
	}

	color.Green("Switched to %s (%s)", router.ProviderName(), router.EndpointURL())

	return nil
}

func runProviderKey(cmd *cobra.Command, args []string) error {
	kind, err := providers.ParseProviderKind(args[0])
	if err != nil {
		return err
	}

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		fmt.Print("API Key: ")

		reader := bufio.NewReader(os.Stdin)
		key, _ = reader.ReadString('\n')
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key must not be empty")
	}

	if err := config.SaveKey(baseDir, string(kind), key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}

	color.Green("Saved %s key %s", kind, maskString(key))

	return nil
}
