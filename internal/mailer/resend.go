// Package mailer sends transactional email through the Resend HTTP API.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/designengineer/course-api/internal/model"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("mailer disabled")

// Welcome is the data rendered into the course welcome email.
type Welcome struct {
	To          string
	AccessLevel model.AccessLevel
	ExpiresAt   *time.Time
}

// Client talks to Resend.  A Client with an empty API key reports
// ErrDisabled from every send.
type Client struct {
	http   *resty.Client
	apiKey string
	from   string
}

// NewClient returns a Resend client rooted at baseURL.
func NewClient(baseURL, apiKey, from string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc, apiKey: apiKey, from: from}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send delivers one message and returns the Resend message id.
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	if c == nil || c.apiKey == "" {
		return "", ErrDisabled
	}
	var (
		ok     sendResponse
		failed apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(sendRequest{From: c.from, To: []string{to}, Subject: subject, HTML: html}).
		SetResult(&ok).
		SetError(&failed).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("resend request: %w", err)
	}
	if resp.IsError() {
		msg := failed.Message
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("resend: status %d: %s", resp.StatusCode(), msg)
	}
	return ok.ID, nil
}

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!doctype html>
<html><body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #111;">
<h1>Welcome to the course!</h1>
<p>Thanks for joining, {{.To}}. Your access level is <strong>{{.Level}}</strong>.</p>
{{if .ExpiresAt}}<p>This is temporary access and ends on {{.ExpiresAt}}.</p>{{end}}
<p>Pick up where you left off at <a href="https://designengineer.xyz/course">designengineer.xyz/course</a>.</p>
</body></html>`))

// SendWelcome renders and sends the welcome email.
func (c *Client) SendWelcome(ctx context.Context, w Welcome) error {
	if w.To == "" {
		return errors.New("welcome email has no recipient")
	}
	html, err := RenderWelcome(w)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, w.To, "Welcome to the Course!", html)
	return err
}

// RenderWelcome returns the welcome email body.
func RenderWelcome(w Welcome) (string, error) {
	data := struct {
		To        string
		Level     string
		ExpiresAt string
	}{To: w.To, Level: levelLabel(w.AccessLevel)}
	if w.ExpiresAt != nil {
		data.ExpiresAt = w.ExpiresAt.UTC().Format("January 2, 2006")
	}
	var b strings.Builder
	if err := welcomeTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func levelLabel(l model.AccessLevel) string {
	switch l {
	case model.AccessFull:
		return "All-Access"
	case model.AccessDesignFull:
		return "Design: Full Access"
	case model.AccessEngineeringFull:
		return "Engineering: Full Access"
	}
	if g := l.Grants(); len(g) == 1 {
		return g[0].Track.Title() + " Track (" + g[0].Platform.Title() + ")"
	}
	return "Free"
}
