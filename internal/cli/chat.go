package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/golemcli/golem/internal/config"
	"github.com/golemcli/golem/internal/logger"
	"github.com/golemcli/golem/internal/observability"
	"github.com/golemcli/golem/pkg/agent"
	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/session"
	"github.com/golemcli/golem/pkg/tool"
)

var (
	chatSession string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the agent",
	Long: `Start an interactive chat session. The agent can call tools to read
and write workspace files, run shell commands, generate text and send
email. Use --message for a single non-interactive turn.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume the session with this key (default creates a new one)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "run a single turn with this input and exit")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	// Pick up log-level edits to the config file without a restart.
	watcher, err := config.NewWatcher(loader, log.Zerolog())
	if err == nil {
		watcher.OnChange(func(c *config.Config) { log.SetLevel(c.Logging.Level) })
		if werr := watcher.Start(); werr != nil {
			log.Warn().Err(werr).Msg("Config watching disabled")
		} else {
			defer watcher.Stop()
		}
	}

	if cfg.Metrics.Enabled {
		observability.EnsureRegistered()
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if oc, ok := client.(*agent.OllamaClient); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if perr := oc.Ping(pingCtx); perr != nil {
			fmt.Fprintf(out, "warning: Ollama is not reachable at %s (%v)\n", cfg.Model.OllamaURL, perr)
		}
		cancel()
	}

	registry, err := buildRegistry(cfg, client, log.Zerolog())
	if err != nil {
		return err
	}

	runner, err := agent.NewRunner(agent.Config{
		Client:     withRetries(client, cfg, log.Zerolog()),
		Registry:   registry,
		Dispatcher: tool.NewDispatcher(registry, cfg.ToolTimeout()),
		Logger:     log.Zerolog(),
	})
	if err != nil {
		return err
	}

	store, err := session.NewStoreWithIndex(cfg.Sessions.Dir, cfg.Sessions.IndexPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cleanup := session.NewCleanup(store, cfg.Retention(), cfg.Sessions.MaxMessages)
	cleanup.SetSchedule(cfg.Sessions.CleanupCron)
	if cerr := cleanup.Start(); cerr != nil {
		log.Warn().Err(cerr).Msg("Session cleanup not scheduled")
	} else {
		defer cleanup.Stop()
	}

	key := chatSession
	if key == "" {
		key = session.NewSessionKey()
	}
	state := conversation.NewState(key, cfg.Agent.MaxHistory, cfg.Agent.MaxToolCalls)
	if chatSession != "" {
		restored, lerr := store.Load(key)
		if lerr != nil {
			return fmt.Errorf("cannot resume session %s: %w", key, lerr)
		}
		state.Restore(restored)
		fmt.Fprintf(out, "Resumed session %s with %d messages.\n", key, len(restored))
	}
	if cfg.Agent.SystemPrompt != "" && !hasSystemMessage(state) {
		state.Append(conversation.Message{
			Role:    conversation.RoleSystem,
			Content: cfg.Agent.SystemPrompt,
			Pinned:  true,
		})
	}

	chat := &chatLoop{
		runner:   runner,
		registry: registry,
		store:    store,
		state:    state,
		cfg:      cfg,
		out:      out,
	}

	if chatMessage != "" {
		return chat.turn(ctx, chatMessage)
	}

	fmt.Fprintf(out, "golem %s, model %s via %s. Type /help for commands.\n",
		version, cfg.Model.Name, cfg.Model.Provider)
	return chat.repl(ctx, cmd.InOrStdin())
}

// chatLoop holds the per-session pieces the REPL needs.
type chatLoop struct {
	runner   *agent.Runner
	registry *tool.Registry
	store    *session.Store
	state    *conversation.State
	cfg      *config.Config
	out      io.Writer
}

func (c *chatLoop) repl(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := c.command(line); quit {
				return nil
			}
			continue
		}
		if err := c.turn(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *chatLoop) turn(ctx context.Context, input string) error {
	result, err := c.runner.Turn(ctx, c.state, input)
	if err != nil {
		return err
	}

	for _, res := range result.Results {
		if !res.OK() {
			fmt.Fprintf(c.out, "[tool %s: %s]\n", res.CallID, res.Status)
		}
	}
	fmt.Fprintf(c.out, "golem> %s\n", result.Answer)

	if err := c.store.Replace(c.state.SessionID(), c.state.History(0)); err != nil {
		fmt.Fprintf(c.out, "warning: session not saved: %v\n", err)
	}
	return nil
}

// command handles a slash command and reports whether the REPL should exit.
func (c *chatLoop) command(line string) bool {
	switch fields := strings.Fields(line); fields[0] {
	case "/quit", "/exit":
		fmt.Fprintf(c.out, "Session %s saved.\n", c.state.SessionID())
		return true
	case "/help":
		fmt.Fprintln(c.out, "/history  show the conversation so far")
		fmt.Fprintln(c.out, "/tools    list available tools")
		fmt.Fprintln(c.out, "/session  print the session key")
		fmt.Fprintln(c.out, "/reset    forget the conversation")
		fmt.Fprintln(c.out, "/quit     exit")
	case "/history":
		for _, msg := range c.state.History(0) {
			content := msg.Content
			if content == "" && len(msg.ToolCalls) > 0 {
				content = fmt.Sprintf("(%d tool calls)", len(msg.ToolCalls))
			}
			fmt.Fprintf(c.out, "%-10s %s\n", msg.Role, content)
		}
	case "/tools":
		printTools(c.out, c.registry)
	case "/session":
		fmt.Fprintln(c.out, c.state.SessionID())
	case "/reset":
		key := c.state.SessionID()
		c.state = conversation.NewState(key, c.cfg.Agent.MaxHistory, c.cfg.Agent.MaxToolCalls)
		if err := c.store.Replace(key, nil); err != nil {
			fmt.Fprintf(c.out, "warning: session not cleared on disk: %v\n", err)
		}
		fmt.Fprintln(c.out, "Conversation cleared.")
	default:
		fmt.Fprintf(c.out, "unknown command %s, try /help\n", fields[0])
	}
	return false
}

func hasSystemMessage(state *conversation.State) bool {
	for _, msg := range state.History(0) {
		if msg.Role == conversation.RoleSystem {
			return true
		}
	}
	return false
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server stopped")
	}
}
