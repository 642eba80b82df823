package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.LLM.Provider != "openrouter" {
		t.Errorf("Provider = %q, want openrouter", cfg.LLM.Provider)
	}
	// endpoint and model follow the provider unless set
	if cfg.LLM.BaseURL != "" || cfg.LLM.Model != "" {
		t.Errorf("BaseURL/Model = %q/%q, want empty", cfg.LLM.BaseURL, cfg.LLM.Model)
	}
	if cfg.Sync.MaxBranchAttempts != 3 {
		t.Errorf("MaxBranchAttempts = %d, want 3", cfg.Sync.MaxBranchAttempts)
	}
	if cfg.Prompts.Continue != DefaultContinuePrompt {
		t.Error("expected default continue prompt")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen = "0.0.0.0:9000"

[github]
token = "ghp_test"
api_url = "https://ghe.example.com/api/v3/"

[llm]
model = "openai/gpt-4o"
temperature = 0.4

[llm.bedrock]
region = "eu-west-1"

[prompts]
continue = "Keep going."

[sync]
branch_prefix = "drafts/"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("Token = %q", cfg.GitHub.Token)
	}
	if cfg.GitHub.APIURL != "https://ghe.example.com/api/v3" {
		t.Errorf("APIURL = %q, want trailing slash trimmed", cfg.GitHub.APIURL)
	}
	if cfg.LLM.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0.4 {
		t.Errorf("Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.Bedrock.Region != "eu-west-1" {
		t.Errorf("Bedrock.Region = %q", cfg.LLM.Bedrock.Region)
	}
	if cfg.Prompts.Continue != "Keep going." {
		t.Errorf("Prompts.Continue = %q", cfg.Prompts.Continue)
	}
	if cfg.Prompts.Revise != DefaultRevisePrompt {
		t.Error("unset prompt should keep default")
	}
	if cfg.Sync.BranchPrefix != "drafts/" {
		t.Errorf("BranchPrefix = %q", cfg.Sync.BranchPrefix)
	}
	if cfg.Sync.MaxBranchAttempts != 3 {
		t.Errorf("MaxBranchAttempts = %d, want default 3", cfg.Sync.MaxBranchAttempts)
	}
	if cfg.File() != path {
		t.Errorf("File() = %q", cfg.File())
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := writeConfig(t, `listen = `)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("ESCRIBA_LLM_API_KEY", "sk-env")
	t.Setenv("ESCRIBA_GITHUB_TOKEN", "ghp_env")

	cfg := Default()
	ApplyOverrides(cfg, NewViper())

	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.LLM.APIKey)
	}
	if cfg.GitHub.Token != "ghp_env" {
		t.Errorf("Token = %q, want ghp_env", cfg.GitHub.Token)
	}
	if cfg.LLM.Model != Default().LLM.Model {
		t.Errorf("Model changed without override: %q", cfg.LLM.Model)
	}
}

func TestApplyOverridesFromFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("model", "", "")
	if err := flags.Parse([]string{"--model", "meta/llama"}); err != nil {
		t.Fatal(err)
	}

	v := NewViper()
	if err := v.BindPFlag("llm.model", flags.Lookup("model")); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	ApplyOverrides(cfg, v)
	if cfg.LLM.Model != "meta/llama" {
		t.Errorf("Model = %q, want meta/llama", cfg.LLM.Model)
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, `listen = "127.0.0.1:1"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	go func() {
		_ = Watch(ctx, path, func(c *Config) { changed <- c })
	}()

	// Give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`listen = "127.0.0.1:2"`), 0644); err != nil {
		t.Fatal(err)
	}

	// A write can surface as several events (truncate, then data)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Listen == "127.0.0.1:2" {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for reload")
		}
	}
}
