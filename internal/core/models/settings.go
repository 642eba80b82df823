package models

// Settings is the user-editable configuration blob.
// Empty fields fall back to the server configuration.
type Settings struct {
	LLMAPIKey          string   `json:"llm_api_key,omitempty"`
	Model              string   `json:"model,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	MaxTokens          int      `json:"max_tokens,omitempty"`
	SystemPrompt       string   `json:"system_prompt,omitempty"`
	ContinuePrompt     string   `json:"continue_prompt,omitempty"`
	RevisePrompt       string   `json:"revise_prompt,omitempty"`
	GitHubClientID     string   `json:"github_client_id,omitempty"`
	GitHubClientSecret string   `json:"github_client_secret,omitempty"`
}

// Merge returns s with every empty field taken from fallback
func (s Settings) Merge(fallback Settings) Settings {
	out := s
	if out.LLMAPIKey == "" {
		out.LLMAPIKey = fallback.LLMAPIKey
	}
	if out.Model == "" {
		out.Model = fallback.Model
	}
	if out.Temperature == nil {
		out.Temperature = fallback.Temperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = fallback.MaxTokens
	}
	if out.SystemPrompt == "" {
		out.SystemPrompt = fallback.SystemPrompt
	}
	if out.ContinuePrompt == "" {
		out.ContinuePrompt = fallback.ContinuePrompt
	}
	if out.RevisePrompt == "" {
		out.RevisePrompt = fallback.RevisePrompt
	}
	if out.GitHubClientID == "" {
		out.GitHubClientID = fallback.GitHubClientID
	}
	if out.GitHubClientSecret == "" {
		out.GitHubClientSecret = fallback.GitHubClientSecret
	}
	return out
}

// Redacted returns a copy safe to show in a browser
func (s Settings) Redacted() Settings {
	out := s
	if out.LLMAPIKey != "" {
		out.LLMAPIKey = redact(out.LLMAPIKey)
	}
	if out.GitHubClientSecret != "" {
		out.GitHubClientSecret = redact(out.GitHubClientSecret)
	}
	return out
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
