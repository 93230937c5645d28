// Package mailer sends report-ready notification email via the SendGrid v3
// REST API. Delivery is best-effort: callers log failures and move on.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the mail operations used by the pipeline.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Config holds SendGrid API settings.
type Config struct {
	Key       string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// httpClient implements Client over the SendGrid v3 mail send endpoint.
type httpClient struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a new mail client.
func NewClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &httpClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// sendGrid v3 request body types.
type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgSendRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (c *httpClient) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return eris.New("mailer: recipient required")
	}

	payload := sgSendRequest{
		Personalizations: []sgPersonalization{
			{To: []sgAddress{{Email: msg.To, Name: msg.ToName}}},
		},
		From:    sgAddress{Email: c.cfg.FromEmail, Name: c.cfg.FromName},
		Subject: msg.Subject,
		Content: []sgContent{{Type: "text/html", Value: msg.HTML}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "mailer: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "mailer: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "mailer: send")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return eris.New(fmt.Sprintf("mailer: send failed: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	return nil
}
