// Package n8n はAIの返信をn8nのwebhookに転送する（n8nがWhatsAppに送る）。
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Forwarder struct {
	url  string
	http *http.Client
}

// urlが空なら何もしない
func NewForwarder(url string, timeout time.Duration) *Forwarder {
	return &Forwarder{url: url, http: &http.Client{Timeout: timeout}}
}

type aiMessage struct {
	AIMessages  string `json:"ai_messages"`
	PhoneNumber string `json:"phone_number"`
}

func (f *Forwarder) ForwardAIMessage(ctx context.Context, phoneNumber string, message string) error {
	if f.url == "" {
		return nil
	}

	body, err := json.Marshal(aiMessage{AIMessages: message, PhoneNumber: phoneNumber})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("n8n webhook: status %d", res.StatusCode)
	}
	return nil
}
