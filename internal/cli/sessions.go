package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/golemcli/golem/pkg/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune oversized sessions and delete expired ones now",
	RunE:  runSessionsCleanup,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsCleanupCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openStore() (*session.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.NewStoreWithIndex(cfg.Sessions.Dir, cfg.Sessions.IndexPath)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}

	infos := make([]session.Info, 0, len(keys))
	for _, key := range keys {
		info, err := store.GetInfo(key)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})

	for _, info := range infos {
		fmt.Fprintf(out, "%-38s %4d messages  %s\n",
			info.Key, info.MessageCount, info.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	messages, err := store.Load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, msg := range messages {
		content := msg.Content
		if content == "" && len(msg.ToolCalls) > 0 {
			content = fmt.Sprintf("(%d tool calls)", len(msg.ToolCalls))
		}
		fmt.Fprintf(out, "%-10s %s\n", msg.Role, content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s.\n", args[0])
	return nil
}

func runSessionsCleanup(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := session.NewStoreWithIndex(cfg.Sessions.Dir, cfg.Sessions.IndexPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cleanup := session.NewCleanup(store, cfg.Retention(), cfg.Sessions.MaxMessages)
	if err := cleanup.Run(); err != nil {
		return err
	}

	stats, err := cleanup.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleanup done, %v sessions remain.\n", stats["total_sessions"])
	return nil
}
