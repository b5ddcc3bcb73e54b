package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestOpenAI_Generate(t *testing.T) {
	var gotAuth, gotModel, gotSystem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		gotModel = gjson.GetBytes(body, "model").String()
		gotSystem = gjson.GetBytes(body, "messages.0.content").String()

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   gotModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": "```json\n{\"title\":\"Launch\"}\n```",
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", Enabled: true, BaseURL: srv.URL + "/v1/"})
	out, err := p.Generate(context.Background(), Prompt{System: "Reply with JSON.", User: "hero"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := gjson.GetBytes(out, "title").String(); got != "Launch" {
		t.Errorf("title = %q, want Launch", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != DefaultOpenAIModel {
		t.Errorf("model = %q, want %q", gotModel, DefaultOpenAIModel)
	}
	if gotSystem != "Reply with JSON." {
		t.Errorf("system message = %q", gotSystem)
	}
}

func TestOpenAI_UpstreamErrorIsSingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", Enabled: true, BaseURL: srv.URL + "/v1/"})
	if _, err := p.Generate(context.Background(), Prompt{User: "x"}); err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestProvidersAvailability(t *testing.T) {
	tests := []struct {
		name string
		p    Provider
		want bool
	}{
		{"gemini enabled with key", NewGemini(GeminiConfig{APIKey: "k", Enabled: true}), true},
		{"gemini disabled", NewGemini(GeminiConfig{APIKey: "k"}), false},
		{"openai without key", NewOpenAI(OpenAIConfig{Enabled: true}), false},
		{"openai enabled with key", NewOpenAI(OpenAIConfig{APIKey: "k", Enabled: true}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}
