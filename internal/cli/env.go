package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/golemcli/golem/internal/config"
	"github.com/golemcli/golem/internal/logger"
	"github.com/golemcli/golem/pkg/agent"
	"github.com/golemcli/golem/pkg/coretools"
	"github.com/golemcli/golem/pkg/extension"
	"github.com/golemcli/golem/pkg/gentools"
	"github.com/golemcli/golem/pkg/mailtools"
	"github.com/golemcli/golem/pkg/tool"
	"github.com/golemcli/golem/pkg/workflows"
)

// loadConfig reads the config file named by the --config flag (or the
// default path) and applies the --log-level override.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, loader, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
}

// newModelClient builds the configured backend without the retry
// wrapper, so callers can still reach provider-specific methods.
func newModelClient(cfg *config.Config) (agent.ModelClient, error) {
	return agent.NewClient(agent.ClientConfig{
		Provider:    cfg.Model.Provider,
		Model:       cfg.Model.Name,
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.OllamaURL,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
		Timeout:     cfg.ModelTimeout(),
	})
}

func withRetries(client agent.ModelClient, cfg *config.Config, log zerolog.Logger) agent.ModelClient {
	if cfg.Model.MaxRetries <= 0 {
		return client
	}
	return agent.NewRetryClient(client, cfg.Model.MaxRetries, log)
}

// buildRegistry loads every tool source into one registry. Individual
// tool failures are logged and skipped; the rest keep working.
func buildRegistry(cfg *config.Config, client agent.ModelClient, log zerolog.Logger) (*tool.Registry, error) {
	mailer, err := mailtools.NewMailer(mailtools.Options{
		Host: cfg.Email.SMTPHost,
		Port: cfg.Email.SMTPPort,
		From: cfg.Email.From,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}

	registry := tool.NewRegistry()
	report := extension.Load(registry,
		extension.FuncSource("core", func() ([]tool.Spec, error) {
			return coretools.Tools(coretools.Options{
				WorkspaceRoot: cfg.Tools.Workspace,
				ShellTimeout:  cfg.ShellTimeout(),
			})
		}),
		extension.FuncSource("generation", func() ([]tool.Spec, error) {
			return gentools.Tools(client)
		}),
		extension.FuncSource("email", func() ([]tool.Spec, error) {
			return mailtools.Tools(mailer)
		}),
		extension.FuncSource("workflows", func() ([]tool.Spec, error) {
			return workflows.Tools(workflows.Options{
				WorkspaceRoot: cfg.Tools.Workspace,
				Client:        client,
				Mailer:        mailer,
			})
		}),
	)

	for _, f := range report.Failures {
		log.Warn().
			Str("source", f.Source).
			Str("tool", f.Tool).
			Str("reason", f.Reason).
			Msg("Tool not loaded")
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no tools could be loaded")
	}
	return registry, nil
}
