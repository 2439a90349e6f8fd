package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/chat-bridge/internal/config"
	"github.com/Davincible/chat-bridge/internal/providers"
	"github.com/Davincible/chat-bridge/internal/toolcall"
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt...]",
	Short: "Chat with the configured model",
	Long: `Send a prompt to the active provider and stream the reply. With --interactive the
conversation continues until /exit. Ctrl+C cancels the reply in progress.`,
	Args: cobra.ArbitraryArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("model", "m", "", "model id for this session")
	chatCmd.Flags().StringP("provider", "p", "", "provider for this session (claude, openai)")
	chatCmd.Flags().Bool("no-stream", false, "wait for the full reply instead of streaming")
	chatCmd.Flags().BoolP("interactive", "i", false, "keep the conversation open")
}

// sessionSettings layers the --provider flag over the config file. A saved
// switch replaces the flag.
type sessionSettings struct {
	base *config.Manager

	mu       sync.Mutex
	provider string
}

func (s *sessionSettings) Get() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := *s.base.Get()
	if s.provider != "" {
		cfg.Provider = s.provider
	}

	return &cfg
}

func (s *sessionSettings) Save(cfg *config.Config) error {
	s.mu.Lock()
	s.provider = ""
	s.mu.Unlock()

	return s.base.Save(cfg)
}

type chatSession struct {
	router   *providers.Router
	modelID  string
	stream   bool
	messages []providers.Message
}

func runChat(cmd *cobra.Command, args []string) error {
	modelID, _ := cmd.Flags().GetString("model")
	providerName, _ := cmd.Flags().GetString("provider")
	noStream, _ := cmd.Flags().GetBool("no-stream")
	interactive, _ := cmd.Flags().GetBool("interactive")

	if providerName != "" {
		kind, err := providers.ParseProviderKind(providerName)
		if err != nil {
			return err
		}

		providerName = string(kind)
	}

	settings := &sessionSettings{base: cfgMgr, provider: providerName}

	router, err := newRouter(settings)
	if err != nil {
		return err
	}

	if cfgMgr.Exists() {
		watcher, err := config.NewWatcher(cfgMgr, logger, func(*config.Config) {
			router.Refresh(settings.Get())
		})
		if err != nil {
			logger.Warn("Config watching disabled", "error", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	// Ctrl+C aborts the reply in flight rather than the process
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		for range sigCh {
			router.Cancel()
		}
	}()

	session := &chatSession{
		router:  router,
		modelID: modelID,
		stream:  !noStream,
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))

	if !interactive {
		if prompt == "" {
			return fmt.Errorf("a prompt is required unless --interactive is set")
		}

		return session.send(cmd.Context(), prompt)
	}

	color.Blue("Chatting with %s (%s). Type /help for commands.", router.ProviderName(), router.EndpointURL())

	if prompt != "" {
		if err := session.send(cmd.Context(), prompt); err != nil {
			reportChatError(err)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		color.New(color.FgGreen, color.Bold).Print("\n> ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := session.command(line); done {
				return nil
			}
			continue
		}

		if err := session.send(cmd.Context(), line); err != nil {
			reportChatError(err)
		}
	}
}

// command runs a slash command and reports whether the session should end.
func (s *chatSession) command(line string) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/reset":
		s.messages = nil
		color.Yellow("Conversation cleared")
	case "/tokens":
		fmt.Printf("%d tokens in history\n", s.router.CountTokens(s.messages))
	case "/provider":
		if len(fields) < 2 {
			fmt.Printf("%s (%s)\n", s.router.ProviderName(), s.router.EndpointURL())
			break
		}

		kind, err := providers.ParseProviderKind(fields[1])
		if err != nil {
			color.Red("%v", err)
			break
		}

		if err := s.router.Switch(kind); err != nil {
			color.Red("%v", err)
			break
		}

		color.Green("Switched to %s", s.router.ProviderName())
	case "/model":
		if len(fields) < 2 {
			fmt.Println(s.modelOrDefault())
			break
		}

		s.modelID = fields[1]
		color.Green("Using model %s", s.modelID)
	default:
		color.Cyan("/provider [claude|openai]  /model [id]  /tokens  /reset  /exit")
	}

	return false
}

func (s *chatSession) modelOrDefault() string {
	if s.modelID != "" {
		return s.modelID
	}

	return cfgMgr.Get().Model
}

func (s *chatSession) send(ctx context.Context, prompt string) error {
	s.messages = append(s.messages, providers.TextMessage(providers.RoleUser, prompt))

	req := providers.ChatRequest{
		Messages:   s.messages,
		ModelID:    s.modelID,
		OnToolCall: printToolCall,
	}

	if s.stream {
		req.OnStream = func(chunk string) { fmt.Print(chunk) }
	}

	resp, err := s.router.Chat(ctx, req)
	if err != nil {
		// Drop the unanswered turn so the history stays alternating
		s.messages = s.messages[:len(s.messages)-1]
		return err
	}

	if s.stream {
		fmt.Println()
	} else {
		fmt.Println(resp.Text())
	}

	for _, block := range resp.ToolUses() {
		printToolCall(toolcall.Call{ID: block.ID, Name: block.Name, Input: block.Input})
	}

	if resp.Usage != nil {
		logger.Debug("Usage", "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	}

	s.messages = append(s.messages, providers.AssistantMessage(resp))

	return nil
}

func printToolCall(call toolcall.Call) {
	input, err := json.Marshal(call.Input)
	if err != nil {
		input = []byte("{}")
	}

	color.Cyan("⚙ %s #%s %s", toolcall.MapName(call.Name), toolcall.CallID(call.ID), input)
}

func reportChatError(err error) {
	if errors.Is(err, providers.ErrCancelled) {
		color.Yellow("\nCancelled")
		return
	}

	var httpErr *providers.HTTPError
	if errors.As(err, &httpErr) {
		color.Red("\n%s: %s", httpErr.Status, httpErr.Message())
		return
	}

	color.Red("\n%v", err)
}
