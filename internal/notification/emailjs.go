package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const emailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSNotifier sends verification codes through the EmailJS REST API.
// The template on the EmailJS side is expected to reference to_email and
// verification_code parameters.
type EmailJSNotifier struct {
	serviceID  string
	templateID string
	publicKey  string
	privateKey string
	endpoint   string
	httpClient *http.Client
}

func NewEmailJSNotifier(serviceID, templateID, publicKey, privateKey string) *EmailJSNotifier {
	return &EmailJSNotifier{
		serviceID:  serviceID,
		templateID: templateID,
		publicKey:  publicKey,
		privateKey: privateKey,
		endpoint:   emailJSEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken"`
	TemplateParams map[string]string `json:"template_params"`
}

func (n *EmailJSNotifier) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	payload := emailJSRequest{
		ServiceID:   n.serviceID,
		TemplateID:  n.templateID,
		UserID:      n.publicKey,
		AccessToken: n.privateKey,
		TemplateParams: map[string]string{
			"to_email":          toEmail,
			"verification_code": code,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// EmailJS answers plain text on errors
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs responded %d: %s", resp.StatusCode, string(msg))
	}

	return nil
}
