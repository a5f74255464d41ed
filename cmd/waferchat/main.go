package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/waferchat/internal/config"
	ctxengine "github.com/user/waferchat/internal/context"
	"github.com/user/waferchat/internal/gateway"
	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/runtime/tools"
	"github.com/user/waferchat/internal/state"
	"github.com/user/waferchat/pkg/llm"
	"github.com/user/waferchat/pkg/llm/google"
	"github.com/user/waferchat/pkg/llm/openai"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "waferchat",
	Short:         "Chat with fast inference endpoints, with approved tool use",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config",
		filepath.Join(os.Getenv("HOME"), ".waferchat", "config.toml"), "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := state.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// app holds the wired components shared by chat and serve.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	sessions  *state.SessionStore
	artifacts *state.ArtifactStore
	registry  *runtime.Registry
	gateway   *gateway.Gateway
}

func (a *app) Close() error {
	return a.db.Close()
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	sessions := state.NewSessionStore(db)
	artifacts := state.NewArtifactStore(db)

	// Tool registry
	registry := runtime.NewRegistry()
	if err := tools.Register(registry, cfg.DocsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	var toolNames []string
	for _, t := range registry.All() {
		toolNames = append(toolNames, t.Name())
	}

	// Providers
	dispatcher := llm.NewDispatcher(llm.Providers{
		Primary: openai.New(openai.Options{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Tools:   registry.Definitions(),
		}),
		Google: google.New(google.Options{}),
	})

	// Context engine
	engine, err := ctxengine.New(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create context engine: %w", err)
	}
	promptTmpl, err := ctxengine.LoadPrompt(cfg.SystemPromptPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	retry := runtime.DefaultRetryPolicy()
	if cfg.LLM.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.LLM.RetryAttempts
	}
	rt := runtime.New(dispatcher, engine, retry)
	svc := runtime.NewService(rt, runtime.NewExecutor(registry, artifacts), sessions)

	requestConfig := func() llm.Config {
		prompt, err := ctxengine.RenderPrompt(promptTmpl, cfg.LLM.Model, toolNames)
		if err != nil {
			slog.Warn("system prompt render failed, using default", "error", err)
			prompt, _ = ctxengine.RenderPrompt(ctxengine.DefaultPrompt, cfg.LLM.Model, toolNames)
		}
		return cfg.Request(prompt)
	}

	return &app{
		cfg:       cfg,
		db:        db,
		sessions:  sessions,
		artifacts: artifacts,
		registry:  registry,
		gateway:   gateway.New(svc, requestConfig, int64(cfg.MaxConcurrent)),
	}, nil
}
