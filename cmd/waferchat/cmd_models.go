package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/waferchat/pkg/llm"
	"github.com/user/waferchat/pkg/llm/openai"
)

var modelsRemote bool

func init() {
	modelsCmd.Flags().BoolVar(&modelsRemote, "remote", false, "query the provider's live model list")
	rootCmd.AddCommand(modelsCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if modelsRemote {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			client := openai.New(openai.Options{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey})
			ids, err := client.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("list remote models: %w", err)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\t")
		for _, m := range llm.Models() {
			marker := ""
			if m.ID == cfg.LLM.Model {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, marker)
		}
		return w.Flush()
	},
}
