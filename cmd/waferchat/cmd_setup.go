package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/waferchat/internal/config"
	"github.com/user/waferchat/pkg/llm"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Waferchat Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.LLM.BaseURL = prompt(scanner, "Cerebras base URL", cfg.LLM.BaseURL)
		cfg.LLM.APIKey = prompt(scanner, "Cerebras API key", cfg.LLM.APIKey)

		var ids []string
		for _, m := range llm.Models() {
			ids = append(ids, m.ID)
		}
		fmt.Println("Models:", strings.Join(ids, ", "))
		cfg.LLM.Model = prompt(scanner, "Model", cfg.LLM.Model)

		if cfg.LLM.Model == llm.CustomModel {
			cfg.Custom.Provider = prompt(scanner, "Custom provider (google|openai)", cfg.Custom.Provider)
			cfg.Custom.Model = prompt(scanner, "Custom model name", cfg.Custom.Model)
			cfg.Custom.APIKey = prompt(scanner, "Custom provider API key", cfg.Custom.APIKey)
		}

		if n, err := strconv.Atoi(prompt(scanner, "Max output tokens", strconv.Itoa(cfg.LLM.MaxTokens))); err == nil {
			cfg.LLM.MaxTokens = n
		}
		if f, err := strconv.ParseFloat(prompt(scanner, "Temperature", strconv.FormatFloat(cfg.LLM.Temperature, 'f', -1, 64)), 64); err == nil {
			cfg.LLM.Temperature = f
		}
		cfg.DocsDir = prompt(scanner, "Documentation directory (optional)", cfg.DocsDir)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		if input := strings.TrimSpace(scanner.Text()); input != "" {
			return input
		}
	}
	return defaultVal
}
