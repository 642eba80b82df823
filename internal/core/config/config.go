package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const DefaultSystemPrompt = `You are a writing assistant helping an author with a book written in markdown. Keep the author's voice, tense and formatting. Never add commentary about what you are doing.`

const DefaultContinuePrompt = `Continue writing the document above from where it stops. Respond with only the new markdown text to append.`

const DefaultRevisePrompt = `Revise the document above to improve clarity, flow and correctness while keeping its meaning and structure. Respond with only the full revised markdown document.`

const DefaultCommitMessage = `Update {{{path}}}`

const DefaultPRTitle = `{{{message}}}`

const DefaultPRBody = `{{{message}}}

Edited {{{path}}} with Escriba (branch {{{branch}}} from {{{base}}}).`

type Config struct {
	Listen       string
	PublicURL    string // base URL GitHub redirects back to after login
	StateBackend string // "sqlite" or "file"
	StatePath    string // JSON state file for the "file" backend
	GitHub       GitHubConfig
	LLM          LLMConfig
	Prompts      PromptConfig
	Sync         SyncConfig

	path string
}

type GitHubConfig struct {
	APIURL       string `toml:"api_url"`
	OAuthURL     string `toml:"oauth_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Token        string `toml:"token"` // personal access token; skips the OAuth flow
}

type LLMConfig struct {
	Provider       string        `toml:"provider"` // openrouter, openai, bedrock
	BaseURL        string        `toml:"base_url"`
	APIKey         string        `toml:"api_key"`
	Model          string        `toml:"model"`
	Temperature    *float64      `toml:"temperature"`
	MaxTokens      int           `toml:"max_tokens"`
	TimeoutSeconds int           `toml:"timeout_seconds"`
	Bedrock        BedrockConfig `toml:"bedrock"`
}

type BedrockConfig struct {
	Region          string `toml:"region"`
	Profile         string `toml:"profile"`
	ModelID         string `toml:"model_id"`
	AccessKeyID     string `toml:"access_key_id"` // both keys set = static credentials
	SecretAccessKey string `toml:"secret_access_key"`
}

type PromptConfig struct {
	System        string `toml:"system"`
	Continue      string `toml:"continue"`
	Revise        string `toml:"revise"`
	CommitMessage string `toml:"commit_message"`
	PRTitle       string `toml:"pr_title"`
	PRBody        string `toml:"pr_body"`
}

type SyncConfig struct {
	BranchPrefix      string `toml:"branch_prefix"`
	MaxBranchAttempts int    `toml:"max_branch_attempts"`
}

type tomlConfig struct {
	Listen       string       `toml:"listen"`
	PublicURL    string       `toml:"public_url"`
	StateBackend string       `toml:"state_backend"`
	StatePath    string       `toml:"state_path"`
	GitHub       GitHubConfig `toml:"github"`
	LLM          LLMConfig    `toml:"llm"`
	Prompts      PromptConfig `toml:"prompts"`
	Sync         SyncConfig   `toml:"sync"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Listen:       "127.0.0.1:8420",
		PublicURL:    "http://127.0.0.1:8420",
		StateBackend: "sqlite",
		StatePath:    filepath.Join(Dir(), "state.json"),
		GitHub: GitHubConfig{
			APIURL:   "https://api.github.com",
			OAuthURL: "https://github.com",
		},
		LLM: LLMConfig{
			Provider:       "openrouter",
			MaxTokens:      2048,
			TimeoutSeconds: 120,
		},
		Prompts: PromptConfig{
			System:        DefaultSystemPrompt,
			Continue:      DefaultContinuePrompt,
			Revise:        DefaultRevisePrompt,
			CommitMessage: DefaultCommitMessage,
			PRTitle:       DefaultPRTitle,
			PRBody:        DefaultPRBody,
		},
		Sync: SyncConfig{
			BranchPrefix:      "escriba/edit-",
			MaxBranchAttempts: 3,
		},
	}
}

// Dir returns ~/.config/escriba, honouring XDG_CONFIG_HOME
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "escriba")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".escriba")
	}
	return filepath.Join(home, ".config", "escriba")
}

// Path returns the default config file location
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads config from the default location
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads config from path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.merge(tc)

	return cfg, nil
}

// File returns the path the config was loaded from
func (c *Config) File() string {
	return c.path
}

func (c *Config) merge(tc tomlConfig) {
	setString(&c.Listen, tc.Listen)
	setString(&c.PublicURL, tc.PublicURL)
	setString(&c.StateBackend, tc.StateBackend)
	setString(&c.StatePath, expandHome(tc.StatePath))

	setString(&c.GitHub.APIURL, strings.TrimSuffix(tc.GitHub.APIURL, "/"))
	setString(&c.GitHub.OAuthURL, strings.TrimSuffix(tc.GitHub.OAuthURL, "/"))
	setString(&c.GitHub.ClientID, tc.GitHub.ClientID)
	setString(&c.GitHub.ClientSecret, tc.GitHub.ClientSecret)
	setString(&c.GitHub.Token, tc.GitHub.Token)

	setString(&c.LLM.Provider, tc.LLM.Provider)
	setString(&c.LLM.BaseURL, strings.TrimSuffix(tc.LLM.BaseURL, "/"))
	setString(&c.LLM.APIKey, tc.LLM.APIKey)
	setString(&c.LLM.Model, tc.LLM.Model)
	if tc.LLM.Temperature != nil {
		c.LLM.Temperature = tc.LLM.Temperature
	}
	if tc.LLM.MaxTokens > 0 {
		c.LLM.MaxTokens = tc.LLM.MaxTokens
	}
	if tc.LLM.TimeoutSeconds > 0 {
		c.LLM.TimeoutSeconds = tc.LLM.TimeoutSeconds
	}
	setString(&c.LLM.Bedrock.Region, tc.LLM.Bedrock.Region)
	setString(&c.LLM.Bedrock.Profile, tc.LLM.Bedrock.Profile)
	setString(&c.LLM.Bedrock.ModelID, tc.LLM.Bedrock.ModelID)
	setString(&c.LLM.Bedrock.AccessKeyID, tc.LLM.Bedrock.AccessKeyID)
	setString(&c.LLM.Bedrock.SecretAccessKey, tc.LLM.Bedrock.SecretAccessKey)

	setString(&c.Prompts.System, tc.Prompts.System)
	setString(&c.Prompts.Continue, tc.Prompts.Continue)
	setString(&c.Prompts.Revise, tc.Prompts.Revise)
	setString(&c.Prompts.CommitMessage, tc.Prompts.CommitMessage)
	setString(&c.Prompts.PRTitle, tc.Prompts.PRTitle)
	setString(&c.Prompts.PRBody, tc.Prompts.PRBody)

	setString(&c.Sync.BranchPrefix, tc.Sync.BranchPrefix)
	if tc.Sync.MaxBranchAttempts > 0 {
		c.Sync.MaxBranchAttempts = tc.Sync.MaxBranchAttempts
	}
}

// overrideKeys are the settings that can come from ESCRIBA_* env vars or flags
var overrideKeys = []string{
	"listen",
	"public_url",
	"state_backend",
	"state_path",
	"github.token",
	"github.client_id",
	"github.client_secret",
	"github.api_url",
	"llm.provider",
	"llm.base_url",
	"llm.api_key",
	"llm.model",
}

// NewViper returns a viper instance reading ESCRIBA_* environment variables
// (ESCRIBA_LLM_API_KEY for llm.api_key, and so on)
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("escriba")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range overrideKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// ApplyOverrides copies every key set in v (env or changed flag) onto c
func ApplyOverrides(c *Config, v *viper.Viper) {
	targets := map[string]*string{
		"listen":               &c.Listen,
		"public_url":           &c.PublicURL,
		"state_backend":        &c.StateBackend,
		"state_path":           &c.StatePath,
		"github.token":         &c.GitHub.Token,
		"github.client_id":     &c.GitHub.ClientID,
		"github.client_secret": &c.GitHub.ClientSecret,
		"github.api_url":       &c.GitHub.APIURL,
		"llm.provider":         &c.LLM.Provider,
		"llm.base_url":         &c.LLM.BaseURL,
		"llm.api_key":          &c.LLM.APIKey,
		"llm.model":            &c.LLM.Model,
	}
	for _, key := range overrideKeys {
		if v.IsSet(key) {
			setString(targets[key], v.GetString(key))
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
