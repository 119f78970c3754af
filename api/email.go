package api

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"
)

// ValidateRecipients checks every address before any network call is
// made. A single malformed address rejects the whole request.
func ValidateRecipients(recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	for _, r := range recipients {
		if _, err := mail.ParseAddress(strings.TrimSpace(r)); err != nil {
			return fmt.Errorf("invalid recipient address %q: %w", r, err)
		}
	}
	return nil
}

// SendEmail sends an email immediately through the backend mailer.
func (c *Client) SendEmail(ctx context.Context, recipients []string, subject, body string) (*EmailSendResponse, error) {
	if err := ValidateRecipients(recipients); err != nil {
		return nil, err
	}

	req := map[string]any{
		"recipients": recipients,
		"subject":    subject,
		"body":       body,
	}
	var resp EmailSendResponse
	if err := c.doJSON(ctx, http.MethodPost, "/actions/email/send", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return &resp, nil
}

// ScheduleEmail schedules an email for a future send. The timestamp is
// normalized to the backend's expected "YYYY-MM-DD HH:MM:SS" form with
// timezone stripped.
func (c *Client) ScheduleEmail(ctx context.Context, recipients []string, subject, body string, at time.Time) (*EmailSendResponse, error) {
	if err := ValidateRecipients(recipients); err != nil {
		return nil, err
	}

	req := map[string]any{
		"recipients": recipients,
		"subject":    subject,
		"body":       body,
		"datetime":   at.Format("2006-01-02 15:04:05"),
	}
	var resp EmailSendResponse
	if err := c.doJSON(ctx, http.MethodPost, "/actions/email/schedule", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to schedule email: %w", err)
	}
	return &resp, nil
}
