package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/golemcli/golem/pkg/tool"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the agent",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	// Listing only needs specs; the client is never dialed here.
	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	registry, err := buildRegistry(cfg, client, log.Zerolog())
	if err != nil {
		return err
	}

	printTools(cmd.OutOrStdout(), registry)
	return nil
}

func printTools(out io.Writer, registry *tool.Registry) {
	byCategory := registry.ByCategory()

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, c := range categories {
		fmt.Fprintf(out, "%s:\n", c)
		for _, spec := range byCategory[tool.Category(c)] {
			fmt.Fprintf(out, "  %-22s %s\n", spec.Name, spec.Description)
		}
	}
	fmt.Fprintf(out, "%d tools total\n", registry.Len())
}
