package publish

import (
	"os"
	"strings"

	"webmake/internal/domain"
)

// Default provider API roots.
const (
	DefaultNetlifyBaseURL = "https://api.netlify.com"
	DefaultVercelBaseURL  = "https://api.vercel.com"
)

// Environment keys holding provider credentials.
const (
	EnvNetlifyToken    = "NETLIFY_TOKEN"
	EnvNetlifySiteID   = "NETLIFY_SITE_ID"
	EnvVercelToken     = "VERCEL_TOKEN"
	EnvVercelProjectID = "VERCEL_PROJECT_ID"
	EnvVercelTeamID    = "VERCEL_TEAM_ID"
)

// Config holds provider credentials. It is resolved once at startup and
// treated as read-only afterwards. Empty credentials switch the provider to
// fallback mode.
type Config struct {
	NetlifyToken    string `yaml:"netlify_token"`
	NetlifySiteID   string `yaml:"netlify_site_id"`
	VercelToken     string `yaml:"vercel_token"`
	VercelProjectID string `yaml:"vercel_project_id"`
	VercelTeamID    string `yaml:"vercel_team_id"`

	// Base URLs are overridable for tests and self-hosted proxies.
	NetlifyBaseURL string `yaml:"netlify_base_url"`
	VercelBaseURL  string `yaml:"vercel_base_url"`
}

// ConfigFromEnv reads provider credentials from the environment.
func ConfigFromEnv() Config {
	return ApplyEnv(Config{})
}

// ApplyEnv overlays non-empty credential variables onto cfg.
func ApplyEnv(cfg Config) Config {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.NetlifyToken, EnvNetlifyToken)
	set(&cfg.NetlifySiteID, EnvNetlifySiteID)
	set(&cfg.VercelToken, EnvVercelToken)
	set(&cfg.VercelProjectID, EnvVercelProjectID)
	set(&cfg.VercelTeamID, EnvVercelTeamID)
	return cfg
}

// RequiredKeys names the configuration keys a provider needs for a live deploy.
func RequiredKeys(p domain.Provider) []string {
	switch p {
	case domain.ProviderNetlify:
		return []string{EnvNetlifyToken, EnvNetlifySiteID}
	case domain.ProviderVercel:
		return []string{EnvVercelToken, EnvVercelProjectID}
	default:
		return nil
	}
}

// Configured reports whether every required credential for p is set.
func (c Config) Configured(p domain.Provider) bool {
	switch p {
	case domain.ProviderNetlify:
		return c.NetlifyToken != "" && c.NetlifySiteID != ""
	case domain.ProviderVercel:
		return c.VercelToken != "" && c.VercelProjectID != ""
	default:
		return false
	}
}

func (c Config) netlifyBase() string {
	if c.NetlifyBaseURL != "" {
		return strings.TrimRight(c.NetlifyBaseURL, "/")
	}
	return DefaultNetlifyBaseURL
}

func (c Config) vercelBase() string {
	if c.VercelBaseURL != "" {
		return strings.TrimRight(c.VercelBaseURL, "/")
	}
	return DefaultVercelBaseURL
}
