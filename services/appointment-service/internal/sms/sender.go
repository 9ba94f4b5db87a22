// Package sms delivers short text messages to the service provider.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

// New returns a WebhookSender when url is set and a LogSender otherwise.
func New(url, token string, logger *slog.Logger) Sender {
	if strings.TrimSpace(url) == "" {
		return NewLogSender(logger)
	}
	return NewWebhookSender(url, token)
}

// WebhookSender posts {"to","body"} JSON to an SMS gateway.
type WebhookSender struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookSender(url string, token string) *WebhookSender {
	return &WebhookSender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

type message struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *WebhookSender) Send(ctx context.Context, to string, body string) error {
	raw, err := json.Marshal(message{To: to, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) ProviderID() string {
	return "sms-log"
}

func (s *LogSender) Send(ctx context.Context, to string, body string) error {
	s.logger.InfoContext(ctx, "sms not delivered (no webhook configured)", "to", to, "body", body)
	return nil
}
