package notification

import "context"

// PushClient is the transport behind mobile push. Injected so deployments can
// plug their provider; nil means push is not configured.
type PushClient interface {
	Push(ctx context.Context, title, content string, audience map[string]any, extras map[string]any) error
}

type PushConfig struct {
	AppKey       string
	MasterSecret string
}

type Push struct {
	cfg PushConfig
	cli PushClient
}

func NewPush(cfg PushConfig, cli PushClient) *Push { return &Push{cfg: cfg, cli: cli} }

// PushToUsers targets specific user aliases, one per emergency contact.
func (p *Push) PushToUsers(ctx context.Context, userIDs []string, title, content string, extras map[string]any) error {
	if p.cli == nil {
		return ErrNotConfigured
	}
	aud := map[string]any{"alias": userIDs}
	return p.cli.Push(ctx, title, content, aud, extras)
}
