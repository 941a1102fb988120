package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendgridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridMailer sends reset codes through the SendGrid v3 REST API.
type SendGridMailer struct {
	apiKey string
	from   string
	client *http.Client
}

// NewSendGridMailer builds a mailer with the given API key and sender.
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridPayload struct {
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendgridAddress `json:"from"`
	Subject string          `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (m *SendGridMailer) SendResetCode(ctx context.Context, email, code string) error {
	payload := sendgridPayload{
		From:    sendgridAddress{Email: m.from},
		Subject: "Password Reset Code",
	}
	payload.Personalizations = append(payload.Personalizations, struct {
		To []sendgridAddress `json:"to"`
	}{To: []sendgridAddress{{Email: email}}})
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{
		Type:  "text/html",
		Value: fmt.Sprintf("<strong>Your password reset code is: %s</strong><br>This code will expire in 15 minutes.", code),
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
