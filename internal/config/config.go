package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the full golem configuration.
type Config struct {
	Model    ModelConfig    `json:"model" mapstructure:"model"`
	Agent    AgentConfig    `json:"agent" mapstructure:"agent"`
	Tools    ToolsConfig    `json:"tools" mapstructure:"tools"`
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`
	Email    EmailConfig    `json:"email" mapstructure:"email"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
}

// ModelConfig selects the model backend and its connection settings.
type ModelConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"`
	Name        string  `json:"name" mapstructure:"name"`
	OllamaURL   string  `json:"ollama_url" mapstructure:"ollama_url"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	Timeout     int     `json:"timeout" mapstructure:"timeout"`
	MaxRetries  int     `json:"max_retries" mapstructure:"max_retries"`
}

// AgentConfig bounds the conversation loop.
type AgentConfig struct {
	MaxHistory   int    `json:"max_history" mapstructure:"max_history"`
	MaxToolCalls int    `json:"max_tool_calls" mapstructure:"max_tool_calls"`
	SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`
}

// ToolsConfig configures tool execution.
type ToolsConfig struct {
	Workspace    string `json:"workspace" mapstructure:"workspace"`
	Timeout      int    `json:"timeout" mapstructure:"timeout"`
	ShellTimeout int    `json:"shell_timeout" mapstructure:"shell_timeout"`
}

// SessionsConfig configures durable conversation storage.
type SessionsConfig struct {
	Dir           string `json:"dir" mapstructure:"dir"`
	IndexPath     string `json:"index_path" mapstructure:"index_path"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
	MaxMessages   int    `json:"max_messages" mapstructure:"max_messages"`
	CleanupCron   string `json:"cleanup_cron" mapstructure:"cleanup_cron"`
}

// EmailConfig configures outbound mail for the send_email tool.
// An empty SMTPHost selects the mock mailer.
type EmailConfig struct {
	SMTPHost string `json:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort int    `json:"smtp_port" mapstructure:"smtp_port"`
	From     string `json:"from" mapstructure:"from"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".golem")

	return &Config{
		Model: ModelConfig{
			Provider:    "ollama",
			Name:        "llama3.1:8b",
			OllamaURL:   "http://localhost:11434",
			MaxTokens:   4096,
			Temperature: 0.7,
			Timeout:     30,
			MaxRetries:  2,
		},
		Agent: AgentConfig{
			MaxHistory:   10,
			MaxToolCalls: 5,
		},
		Tools: ToolsConfig{
			Workspace:    ".",
			Timeout:      10,
			ShellTimeout: 10,
		},
		Sessions: SessionsConfig{
			Dir:           filepath.Join(dataDir, "sessions"),
			IndexPath:     filepath.Join(dataDir, "sessions.db"),
			RetentionDays: 7,
			MaxMessages:   500,
			CleanupCron:   "@daily",
		},
		Email: EmailConfig{
			SMTPPort: 25,
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(dataDir, "logs", "golem.log"),
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "localhost:9464",
		},
	}
}

var validProviders = map[string]bool{
	"ollama":    true,
	"anthropic": true,
	"openai":    true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !validProviders[c.Model.Provider] {
		return fmt.Errorf("invalid model provider: %s", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Model.Provider == "ollama" && c.Model.OllamaURL == "" {
		return fmt.Errorf("ollama_url cannot be empty for the ollama provider")
	}
	if err := c.validateAPIKey(); err != nil {
		return err
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model timeout must be positive, got %d", c.Model.Timeout)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Model.Temperature)
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", c.Model.MaxRetries)
	}
	if c.Agent.MaxHistory < 1 {
		return fmt.Errorf("max_history must be at least 1, got %d", c.Agent.MaxHistory)
	}
	if c.Agent.MaxToolCalls < 0 {
		return fmt.Errorf("max_tool_calls cannot be negative, got %d", c.Agent.MaxToolCalls)
	}
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("tool timeout must be positive, got %d", c.Tools.Timeout)
	}
	if c.Sessions.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be at least 1, got %d", c.Sessions.RetentionDays)
	}
	if c.Sessions.MaxMessages < 1 {
		return fmt.Errorf("sessions max_messages must be at least 1, got %d", c.Sessions.MaxMessages)
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateAPIKey() error {
	switch c.Model.Provider {
	case "anthropic":
		if c.Model.APIKey == "" {
			return fmt.Errorf("anthropic API key cannot be empty")
		}
		if !strings.HasPrefix(c.Model.APIKey, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if c.Model.APIKey == "" {
			return fmt.Errorf("openai API key cannot be empty")
		}
		if !strings.HasPrefix(c.Model.APIKey, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}
	return nil
}

// ModelTimeout returns the model request timeout as a duration.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.Timeout) * time.Second
}

// ToolTimeout returns the per-tool execution timeout as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Tools.Timeout) * time.Second
}

// ShellTimeout returns the run_shell timeout as a duration.
func (c *Config) ShellTimeout() time.Duration {
	return time.Duration(c.Tools.ShellTimeout) * time.Second
}

// Retention returns the session retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Sessions.RetentionDays) * 24 * time.Hour
}

// String renders the configuration as indented JSON with the API key masked.
func (c *Config) String() string {
	masked := *c
	if masked.Model.APIKey != "" {
		masked.Model.APIKey = "***"
	}
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
