package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/runtime/tools"
)

var toolsJSON bool

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print MCP tool declarations as JSON")
	rootCmd.AddCommand(toolsCmd)
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the model may request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		registry := runtime.NewRegistry()
		if err := tools.Register(registry, cfg.DocsDir); err != nil {
			return fmt.Errorf("register tools: %w", err)
		}

		decls := registry.MCPTools()
		if toolsJSON {
			out, err := json.MarshalIndent(decls, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		for _, t := range decls {
			fmt.Println(toolNameStyle.Render(t.Name) + infoStyle.Render(" ("+strings.Join(t.InputSchema.Required, ", ")+")"))
			fmt.Println("  " + t.Description)
		}
		return nil
	},
}
