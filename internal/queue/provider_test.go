package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewProviderFallbacks(t *testing.T) {
	cases := []struct {
		kind string
		want string
	}{
		{"", "queue.logProvider"},
		{"log", "queue.logProvider"},
		{"stub", "queue.logProvider"},
		{"noop", "queue.noopProvider"},
		{"garbage", "queue.logProvider"},
		{"webhook", "queue.logProvider"}, // no NOTIF_WEBHOOK_URL set
	}
	for _, tc := range cases {
		p := NewProvider(tc.kind)
		if got := typeName(p); got != tc.want {
			t.Errorf("NewProvider(%q) = %s, want %s", tc.kind, got, tc.want)
		}
	}
}

func TestNewProviderDirectURL(t *testing.T) {
	p := NewProvider("https://hooks.example.com/notify")
	wp, ok := p.(webhookProvider)
	if !ok {
		t.Fatalf("NewProvider(url) = %T, want webhookProvider", p)
	}
	if wp.url != "https://hooks.example.com/notify" {
		t.Fatalf("webhook url = %q", wp.url)
	}
}

func TestWebhookProviderSend(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := webhookProvider{url: srv.URL, token: "secret"}
	if err := p.Send(context.Background(), "your permit was approved", "laura@example.com"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("authorization header = %q", auth)
	}
	if got["recipient"] != "laura@example.com" || got["message"] != "your permit was approved" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWebhookProviderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := webhookProvider{url: srv.URL}
	if err := p.Send(context.Background(), "msg", "someone"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case logProvider:
		return "queue.logProvider"
	case noopProvider:
		return "queue.noopProvider"
	case webhookProvider:
		return "queue.webhookProvider"
	default:
		return "unknown"
	}
}
