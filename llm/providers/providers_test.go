package providers

import (
	"encoding/json"
	"testing"

	"github.com/c360studio/aida/llm"
)

func TestProvidersRegistered(t *testing.T) {
	for _, name := range []string{"gemini", "anthropic", "ollama"} {
		if llm.GetProvider(name) == nil {
			t.Errorf("provider %s not registered", name)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		baseURL  string
		want     string
	}{
		{"gemini default", &GeminiProvider{}, "", "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"},
		{"gemini custom", &GeminiProvider{}, "http://localhost:9999/v1/", "http://localhost:9999/v1/chat/completions"},
		{"gemini full path passthrough", &GeminiProvider{}, "http://host/v1/chat/completions", "http://host/v1/chat/completions"},
		{"ollama default", &OllamaProvider{}, "", "http://localhost:11434/v1/chat/completions"},
		{"anthropic default", &AnthropicProvider{}, "", "https://api.anthropic.com/v1/messages"},
		{"anthropic custom", &AnthropicProvider{}, "http://localhost:8080/", "http://localhost:8080/v1/messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.provider.BuildURL(tt.baseURL); got != tt.want {
				t.Errorf("BuildURL(%q) = %q, want %q", tt.baseURL, got, tt.want)
			}
		})
	}
}

func TestOpenAIBodyRoundTrip(t *testing.T) {
	temp := 0.3
	body, err := buildOpenAIBody("gemini-2.0-flash", []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}, &temp, 1024)
	if err != nil {
		t.Fatalf("buildOpenAIBody() error = %v", err)
	}

	var req openAIRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req.Model != "gemini-2.0-flash" || len(req.Messages) != 2 {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.3 {
		t.Errorf("temperature not carried: %v", req.Temperature)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 1024 {
		t.Errorf("max tokens not carried: %v", req.MaxTokens)
	}
}

func TestOpenAIBodyOmitsUnsetFields(t *testing.T) {
	body, err := buildOpenAIBody("m", []llm.Message{{Role: "user", Content: "x"}}, nil, 0)
	if err != nil {
		t.Fatalf("buildOpenAIBody() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["temperature"]; ok {
		t.Error("nil temperature should be omitted")
	}
	if _, ok := raw["max_tokens"]; ok {
		t.Error("zero max_tokens should be omitted")
	}
}

func TestParseOpenAIBody(t *testing.T) {
	body := []byte(`{
		"model": "qwen2.5:14b",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "answer"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`)

	resp, err := parseOpenAIBody(body)
	if err != nil {
		t.Fatalf("parseOpenAIBody() error = %v", err)
	}
	if resp.Content != "answer" || resp.TokensUsed != 15 || resp.FinishReason != "stop" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestParseOpenAIBodyNoChoices(t *testing.T) {
	if _, err := parseOpenAIBody([]byte(`{"model": "m", "choices": []}`)); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestAnthropicBodyLiftsSystemMessage(t *testing.T) {
	p := &AnthropicProvider{}
	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", []llm.Message{
		{Role: "system", Content: "be strict"},
		{Role: "user", Content: "review this"},
	}, nil, 0)
	if err != nil {
		t.Fatalf("BuildRequestBody() error = %v", err)
	}

	var req anthropicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.System != "be strict" {
		t.Errorf("system message not lifted: %q", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("system message should be removed from messages: %+v", req.Messages)
	}
	if req.MaxTokens != 4096 {
		t.Errorf("expected default max tokens 4096, got %d", req.MaxTokens)
	}
}

func TestAnthropicParseResponse(t *testing.T) {
	p := &AnthropicProvider{}
	body := []byte(`{
		"model": "claude-sonnet-4-20250514",
		"content": [
			{"type": "text", "text": "part one "},
			{"type": "tool_use", "text": "ignored"},
			{"type": "text", "text": "part two"}
		],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 20, "output_tokens": 10}
	}`)

	resp, err := p.ParseResponse(body, "claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if resp.Content != "part one part two" {
		t.Errorf("text blocks not joined: %q", resp.Content)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("expected 30 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicParseResponseNoText(t *testing.T) {
	p := &AnthropicProvider{}
	if _, err := p.ParseResponse([]byte(`{"content": []}`), "m"); err == nil {
		t.Error("expected error for empty content")
	}
}
