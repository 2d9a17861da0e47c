package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/golemcli/golem/pkg/agent"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the Ollama server has pulled",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}
	oc, ok := client.(*agent.OllamaClient)
	if !ok {
		return fmt.Errorf("model listing is only available for the ollama provider, current provider is %s", cfg.Model.Provider)
	}

	names, err := oc.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		marker := " "
		if name == cfg.Model.Name {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
	return nil
}
