package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/config"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/interview"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/server"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
	"github.com/Realist2022/Interview-AI-Testimator-backend/llm"
	"github.com/Realist2022/Interview-AI-Testimator-backend/llm/anthropic"
	"github.com/Realist2022/Interview-AI-Testimator-backend/llm/gemini"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Testimator server",
	Long: `Start the HTTP API server, plus the Telegram and Slack bots when
their tokens are configured.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'testimator config setup')", err)
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}
	log.Printf("Using %s provider", cfg.Provider)

	store := session.NewStore(cfg.SessionTTL)
	proc := interview.NewProcessor(client, cfg.FollowUpLimit, cfg.Tokens, cfg.LLMTimeout)
	eng := interview.NewEngine(store, proc)

	s, err := server.New(cfg, store, eng)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return s.Start(ctx)
}

// newLLMClient builds the collaborator for the configured provider.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey, cfg.Model, cfg.LLMTimeout), nil
	case "anthropic":
		return anthropic.New(cfg.AnthropicAPIKey, cfg.Model, cfg.LLMTimeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
