package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type testDecision struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

var testSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent":     map[string]any{"type": "string"},
		"confidence": map[string]any{"type": "number"},
	},
	"required":             []string{"intent", "confidence"},
	"additionalProperties": false,
}

func TestClientDecide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		rf, ok := payload["response_format"].(map[string]any)
		if !ok {
			t.Fatal("missing response_format")
		}
		if rf["type"] != "json_schema" {
			t.Errorf("expected json_schema response format, got %v", rf["type"])
		}

		resp := map[string]any{
			"model": "gpt-4.1-mini",
			"choices": []map[string]any{{
				"message":       map[string]any{"content": `{"intent":"card_atm","confidence":0.9}`},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"total_tokens": 42},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	var decision testDecision
	err = client.Decide(context.Background(), &Request{
		System:     "classify",
		Messages:   []Message{NewUserMessage("I lost my card")},
		SchemaName: "intent_classification",
		Schema:     testSchema,
	}, &decision)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if decision.Intent != "card_atm" {
		t.Errorf("expected intent card_atm, got %s", decision.Intent)
	}
	if decision.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", decision.Confidence)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestClientRequiresSchema(t *testing.T) {
	client, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var out testDecision
	err = client.Decide(context.Background(), &Request{SchemaName: "x"}, &out)
	if !errors.Is(err, ErrNoSchema) {
		t.Errorf("expected ErrNoSchema, got %v", err)
	}
}

func TestClientParsesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	client, _ := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))

	var out testDecision
	err := client.Decide(context.Background(), &Request{
		SchemaName: "x",
		Schema:     testSchema,
	}, &out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsRateLimited() {
		t.Errorf("expected rate-limited error, got status %d", apiErr.StatusCode)
	}
	if !apiErr.IsRetryable() {
		t.Error("rate-limited errors should be retryable")
	}
}

func TestMockScriptedDecision(t *testing.T) {
	mock := NewMock().Script("intent_classification", testDecision{
		Intent:     "account_servicing",
		Confidence: 0.8,
	})

	var out testDecision
	err := mock.Decide(context.Background(), &Request{SchemaName: "intent_classification"}, &out)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if out.Intent != "account_servicing" {
		t.Errorf("expected scripted intent, got %s", out.Intent)
	}
	if mock.CallCount("intent_classification") != 1 {
		t.Errorf("expected 1 recorded call")
	}
}
