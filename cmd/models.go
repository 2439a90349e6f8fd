package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/chat-bridge/internal/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Run:   runModels,
}

func runModels(cmd *cobra.Command, _ []string) {
	current := cfgMgr.Get().Model

	color.Blue("Models:")

	for _, m := range providers.Models() {
		marker := " "
		if m.ID == current {
			marker = "*"
		}

		fmt.Printf("  %s %-45s %-18s in:%d out:%d tools:%v\n",
			marker, m.ID, m.Name, m.MaxInputTokens, m.MaxOutputTokens, m.ToolCalling)
	}
}
