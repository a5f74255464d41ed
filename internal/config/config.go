package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/user/waferchat/pkg/llm"
)

type Config struct {
	DataDir          string `toml:"data_dir"`
	LogLevel         string `toml:"log_level"`
	MaxConcurrent    int    `toml:"max_concurrent"`
	SystemPromptPath string `toml:"system_prompt_path"`
	DocsDir          string `toml:"docs_dir"`
	LLM              struct {
		Provider         string  `toml:"provider"`
		BaseURL          string  `toml:"base_url"`
		APIKey           string  `toml:"api_key"`
		Model            string  `toml:"model"`
		Temperature      float64 `toml:"temperature"`
		TopP             float64 `toml:"top_p"`
		TopK             int     `toml:"top_k"`
		MaxTokens        int     `toml:"max_tokens"`
		MaxContextTokens int     `toml:"max_context_tokens"`
		OutputReserve    int     `toml:"output_reserve"`
		RetryAttempts    int     `toml:"retry_attempts"`
	} `toml:"llm"`
	Custom struct {
		Provider string `toml:"provider"`
		APIKey   string `toml:"api_key"`
		Model    string `toml:"model"`
	} `toml:"custom"`
	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Listen  string `toml:"listen"`
	} `toml:"http"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".waferchat"),
		LogLevel:      "info",
		MaxConcurrent: 2,
	}
	cfg.LLM.Provider = string(llm.ProviderCerebras)
	cfg.LLM.BaseURL = "https://api.cerebras.ai/v1"
	cfg.LLM.Model = llm.DefaultModel
	cfg.LLM.Temperature = 0.7
	cfg.LLM.TopP = 1
	cfg.LLM.MaxTokens = 4096
	cfg.LLM.MaxContextTokens = 128000
	cfg.LLM.OutputReserve = 4096
	cfg.LLM.RetryAttempts = 3
	cfg.Custom.Provider = string(llm.ProviderGoogle)
	cfg.Custom.Model = "gemini-1.5-flash"
	cfg.HTTP.Listen = "127.0.0.1:8484"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Default()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("CEREBRAS_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("CEREBRAS_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if googleKey := os.Getenv("GOOGLE_API_KEY"); googleKey != "" && cfg.Custom.Provider == string(llm.ProviderGoogle) {
		cfg.Custom.APIKey = googleKey
	}

	return cfg, nil
}

// Request builds the per-request LLM configuration.
func (c *Config) Request(systemPrompt string) llm.Config {
	rc := llm.Config{
		Model:        c.LLM.Model,
		Temperature:  c.LLM.Temperature,
		TopP:         c.LLM.TopP,
		TopK:         c.LLM.TopK,
		MaxTokens:    c.LLM.MaxTokens,
		APIKey:       c.LLM.APIKey,
		SystemPrompt: systemPrompt,
	}
	if c.LLM.Model == llm.CustomModel {
		rc.Provider = llm.ProviderKind(c.Custom.Provider)
		rc.APIKey = c.Custom.APIKey
		rc.TargetModel = c.Custom.Model
	}
	return rc
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "waferchat.db")
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg to the nested map form of its TOML encoding.
func ToMap(cfg *Config) (map[string]any, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	m := make(map[string]any)
	if _, err := toml.Decode(buf.String(), &m); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return m, nil
}

// ListValues returns cfg as flat dot-separated keys, optionally with
// secrets masked.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads a single dot-separated key from the file at path.
func GetValue(path, key string) (any, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(raw)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue writes a single dot-separated key to the file at path. An
// existing string key stays a string; otherwise value is stored as an
// integer, float or boolean when it parses as one.
func SetValue(path, key, value string) error {
	raw, err := readRaw(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	flat := Flatten(raw)
	if _, isString := flat[key].(string); isString {
		flat[key] = value
	} else {
		flat[key] = parseValue(value)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Unflatten(flat)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

func readRaw(path string) (map[string]any, error) {
	raw := make(map[string]any)
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return raw, nil
}

func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
