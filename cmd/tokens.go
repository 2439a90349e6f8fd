package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Davincible/chat-bridge/internal/tokens"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [text...]",
	Short: "Count tokens",
	Long:  `Count cl100k_base tokens of the arguments, or of stdin when no arguments are given.`,
	RunE:  runTokens,
}

func runTokens(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}

		text = string(data)
	}

	fmt.Println(tokens.NewCounter(logger).Count(text))

	return nil
}
