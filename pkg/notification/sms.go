package notification

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a sender has no client injected.
// Callers treat it as "channel unavailable", not as a delivery failure.
var ErrNotConfigured = errors.New("notification client not configured")

// SMSClient sends one message to one phone number.
type SMSClient interface {
	Send(ctx context.Context, phone, sign, template string, params map[string]string) error
}

type SMSConfig struct {
	SignName     string
	TemplateCode string
}

type SMS struct {
	cfg SMSConfig
	cli SMSClient
}

func NewSMS(cfg SMSConfig, cli SMSClient) *SMS { return &SMS{cfg: cfg, cli: cli} }

// SendSOS notifies a contact phone that its owner triggered an alert. The
// template carries the owner name and a maps link to the alert position.
func (s *SMS) SendSOS(ctx context.Context, phone, ownerName, mapsURL string) error {
	if s.cli == nil {
		return ErrNotConfigured
	}
	params := map[string]string{"name": ownerName, "url": mapsURL}
	return s.cli.Send(ctx, phone, s.cfg.SignName, s.cfg.TemplateCode, params)
}
