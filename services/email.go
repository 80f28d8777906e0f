package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/LovationAdmin/family-budget-api/utils"
)

const resendEndpoint = "https://api.resend.com/emails"

// MemberNotifier tells a user they were added to a family.
type MemberNotifier interface {
	NotifyMemberAdded(ctx context.Context, to, inviterName, familyName string) error
}

// EmailService sends transactional mail through the Resend API. Without an
// API key every send is skipped.
type EmailService struct {
	apiKey      string
	from        string
	frontendURL string
	endpoint    string
	client      *http.Client
	logger      *slog.Logger
}

func NewEmailService(apiKey, from, frontendURL string, logger *slog.Logger) *EmailService {
	return &EmailService{
		apiKey:      apiKey,
		from:        from,
		frontendURL: frontendURL,
		endpoint:    resendEndpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      utils.Component(logger, "email"),
	}
}

func (s *EmailService) NotifyMemberAdded(ctx context.Context, to, inviterName, familyName string) error {
	if s.apiKey == "" {
		s.logger.DebugContext(ctx, "email disabled, skipping member notification", utils.FieldEmail, to)
		return nil
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Budget Famille</h1>
        <p><strong>%s</strong> added you to the family <strong>"%s"</strong>.</p>
        <p><a href="%s">Open your budget</a></p>
    </div>
</body>
</html>`, html.EscapeString(inviterName), html.EscapeString(familyName), s.frontendURL)

	return s.send(ctx, to, fmt.Sprintf("%s added you to %s", inviterName, familyName), body)
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	payload := map[string]any{
		"from":    s.from,
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send email: status %d", resp.StatusCode)
	}
	return nil
}
