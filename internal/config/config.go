// Package config provides configuration management for Testimator.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// OutputTokens holds the per-stage reply-length caps, in tokens.
// Opening covers the "tell me about yourself" greeting; Question covers
// the first core question and every follow-up; Ack the pre-feedback
// acknowledgment; Feedback the final feedback; Closing the sign-off.
type OutputTokens struct {
	Opening  int
	Question int
	Ack      int
	Feedback int
	Closing  int
}

// Config holds all configuration for the Testimator server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":3000").
	ServerAddr string

	// Provider selects the LLM backend: "gemini" (default) or "anthropic".
	Provider string

	// GeminiAPIKey is the Google Generative Language API key.
	GeminiAPIKey string

	// AnthropicAPIKey is used when Provider is "anthropic".
	AnthropicAPIKey string

	// Model overrides the provider's default model name.
	Model string

	// FollowUpLimit is how many probing follow-up questions are asked
	// after the first core question. The two historical frontends used 2
	// and 3; default 3.
	FollowUpLimit int

	// Tokens caps reply length per stage.
	Tokens OutputTokens

	// SessionTTL is how long an interview session survives without a
	// turn before being evicted. Zero disables eviction. Default: 30m.
	SessionTTL time.Duration

	// LLMTimeout bounds each collaborator call. Default: 60s.
	LLMTimeout time.Duration

	// Telegram integration (optional -- long polling, no public URL needed).
	TelegramBotToken string

	// Slack integration (optional -- Socket Mode).
	// SlackBotToken is the Bot User OAuth Token (xoxb-...).
	SlackBotToken string
	// SlackAppToken is the App-Level Token (xapp-...) required for Socket Mode.
	SlackAppToken string
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// Load config file (~/.testimator/config.env) into the environment.
	// Existing env vars take precedence (loadConfigFile only sets unset vars).
	loadConfigFile()

	cfg := &Config{
		ServerAddr:      envOr("TESTIMATOR_ADDR", ":3000"),
		Provider:        envOr("TESTIMATOR_PROVIDER", "gemini"),
		GeminiAPIKey:    envOr("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:           os.Getenv("TESTIMATOR_MODEL"),
		FollowUpLimit:   envOrInt("TESTIMATOR_FOLLOWUP_LIMIT", 3),
		Tokens: OutputTokens{
			Opening:  envOrInt("TESTIMATOR_TOKENS_OPENING", 150),
			Question: envOrInt("TESTIMATOR_TOKENS_QUESTION", 200),
			Ack:      envOrInt("TESTIMATOR_TOKENS_ACK", 100),
			Feedback: envOrInt("TESTIMATOR_TOKENS_FEEDBACK", 500),
			Closing:  envOrInt("TESTIMATOR_TOKENS_CLOSING", 50),
		},
		SessionTTL:       envOrDuration("TESTIMATOR_SESSION_TTL", 30*time.Minute),
		LLMTimeout:       envOrDuration("TESTIMATOR_LLM_TIMEOUT", 60*time.Second),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		SlackBotToken:    os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:    os.Getenv("SLACK_APP_TOKEN"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required (provider %q)", c.Provider)
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required (provider %q)", c.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q (want gemini or anthropic)", c.Provider)
	}
	if c.FollowUpLimit < 1 {
		return fmt.Errorf("follow-up limit must be at least 1, got %d", c.FollowUpLimit)
	}
	return nil
}

// TelegramEnabled returns true if the Telegram bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// SlackEnabled returns true if Slack Socket Mode is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// loadConfigFile reads ~/.testimator/config.env and sets any values that
// are not already present in the environment. This ensures env vars always win.
func loadConfigFile() {
	f, err := os.Open(ConfigFilePath())
	if err != nil {
		return // file doesn't exist or can't be read — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		// Only set if not already in the environment.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ConfigFilePath returns ~/.testimator/config.env.
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".testimator", "config.env")
	}
	return filepath.Join(home, ".testimator", "config.env")
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
