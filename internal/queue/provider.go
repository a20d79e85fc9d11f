package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider delivers one notification message to a recipient.  The concrete
// channel (log line, webhook, real mail gateway) is chosen from
// configuration; the consumer does not care which.
type Provider interface {
	Send(ctx context.Context, message, recipient string) error
}

// NewProvider builds a Provider from a kind string.  Unknown kinds fall
// back to the log provider so a typo in configuration never silently drops
// notifications.
func NewProvider(kind string) Provider {
	switch kind {
	case "", "stub", "log":
		return logProvider{}
	case "noop":
		return noopProvider{}
	case "webhook":
		url := os.Getenv("NOTIF_WEBHOOK_URL")
		token := os.Getenv("NOTIF_WEBHOOK_TOKEN")
		if url == "" {
			return logProvider{}
		}
		return webhookProvider{url: url, token: token}
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return webhookProvider{url: kind}
		}
		return logProvider{}
	}
}

type logProvider struct{}

func (logProvider) Send(_ context.Context, message, recipient string) error {
	log.Printf("notify %s: %s", recipient, message)
	return nil
}

type noopProvider struct{}

func (noopProvider) Send(context.Context, string, string) error { return nil }

type webhookProvider struct {
	url   string
	token string
}

func (p webhookProvider) Send(ctx context.Context, message, recipient string) error {
	payload := map[string]string{
		"recipient": recipient,
		"message":   message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("provider rejected request")
	}
	return nil
}
