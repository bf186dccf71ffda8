package identity

import (
	"jokefeed/internal/config"
	"jokefeed/internal/prefs"
)

// Provider answers admin and subscription questions for the single owner
// profile this instance serves.
type Provider struct {
	cfg   config.BotConfig
	prefs *prefs.Store
}

func New(cfg config.BotConfig, p *prefs.Store) *Provider {
	return &Provider{cfg: cfg, prefs: p}
}

func (p *Provider) IsAdmin() bool {
	return p.cfg.IsAdmin(p.cfg.OwnerID)
}

func (p *Provider) IsDigestSubscribed() bool {
	subscribed, _ := p.prefs.GetBool(prefs.KeyDigestSubscribed)
	return subscribed
}
