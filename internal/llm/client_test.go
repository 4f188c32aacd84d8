package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dreamofone.ai/internal/protocol"
)

func TestNewClient_DisabledWithoutKey(t *testing.T) {
	c := NewClient(Config{})
	if c != nil || c.Enabled() {
		t.Fatalf("expected nil disabled client")
	}
	_, err := c.Plan(context.Background(), protocol.PlanRequest{})
	if protocol.CodeOf(err) != protocol.ErrPlannerDisabled {
		t.Fatalf("err=%v", err)
	}
}

func TestPlan_SendsMessagesRequest(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("missing headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"speak\":"},{"type":"text","text":"\"hi\"}"}],"usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL, Model: "m"})
	out, err := c.Plan(context.Background(), protocol.PlanRequest{System: "sys", User: "usr", MaxTokens: 220, Temperature: 0.5})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if out != `{"speak":"hi"}` {
		t.Fatalf("out=%q", out)
	}
	if got.Model != "m" || got.System != "sys" || got.MaxTokens != 220 || len(got.Messages) != 1 || got.Messages[0].Content != "usr" {
		t.Fatalf("request=%+v", got)
	}
}

func TestPlan_HTTPErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", Endpoint: srv.URL}).Plan(context.Background(), protocol.PlanRequest{})
	if protocol.CodeOf(err) != protocol.ErrPlannerTransport {
		t.Fatalf("err=%v", err)
	}
}

func TestPlan_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL, Timeout: 30 * time.Millisecond})
	start := time.Now()
	_, err := c.Plan(context.Background(), protocol.PlanRequest{})
	if protocol.CodeOf(err) != protocol.ErrPlannerTransport || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestPlan_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{}"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL, MaxPerMinute: 2})
	for i := 0; i < 2; i++ {
		if _, err := c.Plan(context.Background(), protocol.PlanRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := c.Plan(context.Background(), protocol.PlanRequest{}); protocol.CodeOf(err) != protocol.ErrRateLimit {
		t.Fatalf("err=%v", err)
	}
}
