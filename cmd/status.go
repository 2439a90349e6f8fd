package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/chat-bridge/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider status",
	Long:  `Display the selected provider, its endpoint and which providers have API keys.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	router, err := newRouter(cfgMgr)
	if err != nil {
		return err
	}

	cfg := cfgMgr.Get()

	color.Blue("Status for %s:", AppName)
	fmt.Printf("  %-15s: %s\n", "Provider", router.ProviderName())
	fmt.Printf("  %-15s: %s\n", "Endpoint", router.EndpointURL())
	fmt.Printf("  %-15s: %s\n", "Model", cfg.Model)
	fmt.Printf("  %-15s: %v\n", "Tools", cfg.ToolsEnabled())
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())
	fmt.Printf("  %-15s: v%s\n", "Version", Version)

	fmt.Println("\nProviders:")

	status := router.Status()
	for _, kind := range router.Available() {
		marker := " "
		if kind == router.Current() {
			marker = "*"
		}

		fmt.Printf("  %s %-10s ", marker, kind)

		switch status[kind] {
		case providers.StatusConfigured:
			color.Green("%s", status[kind])
		case providers.StatusNotConfigured:
			color.Yellow("%s", status[kind])
		default:
			color.Red("%s", status[kind])
		}
	}

	return nil
}
