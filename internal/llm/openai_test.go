package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rahulvdev/betedge/config"
)

func testProviderConfig(baseURL string) config.LLMProvider {
	return config.LLMProvider{
		Type:    "openai",
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Models: map[string]config.LLMModel{
			"fast": {
				Name:            "fast",
				APIName:         "gpt-4o-mini",
				MaxTokens:       512,
				Temperature:     0.2,
				CostPer1K:       0.15,
				CostPer1KOutput: 0.60,
			},
		},
	}
}

func TestOpenAIGenerateWithTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("expected api_name on the wire, got %q", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(testProviderConfig(srv.URL))
	out, in, outTok, err := p.GenerateWithTokens(context.Background(), "say hello", "fast", nil)
	if err != nil {
		t.Fatalf("GenerateWithTokens: %v", err)
	}
	if out != "hello" {
		t.Errorf("expected hello, got %q", out)
	}
	if in != 12 || outTok != 3 {
		t.Errorf("unexpected token usage: %d/%d", in, outTok)
	}
}

func TestOpenAIUnknownModel(t *testing.T) {
	p := NewOpenAI(testProviderConfig("http://localhost:0"))
	if _, err := p.Generate(context.Background(), "x", "nonexistent", nil); err == nil {
		t.Fatal("expected error for unconfigured model")
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAI(testProviderConfig(srv.URL))
	if _, err := p.Generate(context.Background(), "x", "fast", nil); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestCalculateCost(t *testing.T) {
	p := NewOpenAI(testProviderConfig(""))
	got := p.CalculateCost(1000, 1000, "fast")
	want := 0.15 + 0.60
	if got != want {
		t.Errorf("cost = %v, want %v", got, want)
	}
	if c := p.CalculateCost(1000, 1000, "missing"); c != 0 {
		t.Errorf("cost for unknown model = %v, want 0", c)
	}
}

func TestExtractFirstJSON(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"Here you go:\n```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`},
		{`no json at all`, `no json at all`},
		{`prefix {"x":1} suffix {"y":2}`, `{"x":1}`},
	}
	for _, c := range cases {
		if got := ExtractFirstJSON(c.in); got != c.want {
			t.Errorf("ExtractFirstJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
