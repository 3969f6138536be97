package twitter

import (
	"fmt"

	"xlytics-backend/internal/sync/domain"
)

// BackendType selects which remote backend a provider talks through.
type BackendType string

const (
	BackendOfficial BackendType = "official"
	BackendRettiwt  BackendType = "rettiwt"
)

// Config holds provider configuration for both backends.
type Config struct {
	Backend BackendType

	// Official API config
	ClientID       string
	ClientSecret   string
	AccessToken    string
	RefreshToken   string
	OnTokenRefresh TokenUpdateFunc

	// Rettiwt proxy config
	ServiceURL string
	Username   string
	Cookies    string
}

// NewProvider creates a SocialProvider based on the config.
// This is the factory function - switch backends by changing cfg.Backend.
func NewProvider(cfg Config) (domain.SocialProvider, error) {
	switch cfg.Backend {
	case BackendOfficial:
		if cfg.AccessToken == "" {
			return nil, fmt.Errorf("TWITTER_ACCESS_TOKEN is required for the official backend")
		}
		return NewOfficialClient(cfg.ClientID, cfg.ClientSecret, cfg.AccessToken, cfg.RefreshToken, cfg.OnTokenRefresh), nil

	case BackendRettiwt:
		if cfg.ServiceURL == "" {
			return nil, fmt.Errorf("RETTIWT_SERVICE_URL is required for the rettiwt backend")
		}
		return NewRettiwtClient(cfg.ServiceURL, cfg.Username, cfg.Cookies), nil

	default:
		// Default to the official API when tokens exist, otherwise the proxy.
		if cfg.AccessToken != "" {
			return NewOfficialClient(cfg.ClientID, cfg.ClientSecret, cfg.AccessToken, cfg.RefreshToken, cfg.OnTokenRefresh), nil
		}
		if cfg.ServiceURL != "" {
			return NewRettiwtClient(cfg.ServiceURL, cfg.Username, cfg.Cookies), nil
		}
		return nil, fmt.Errorf("no twitter backend configured")
	}
}
