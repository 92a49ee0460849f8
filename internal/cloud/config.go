package cloud

import (
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
)

const (
	DefaultTokenURL    = "https://kubioscloud.auth.eu-west-1.amazoncognito.com/oauth2/token"
	DefaultAnalysisURL = "https://analysis.kubioscloud.com/v2/analytics/analyze"
	defaultTimeout     = 30 * time.Second
	defaultRetryCount  = 2
	// Tokens are refreshed this long before they expire.
	tokenLeeway = 30 * time.Second
)

type Config struct {
	TokenURL     string
	AnalysisURL  string
	ClientID     string
	ClientSecret string
	APIKey       string
	Timeout      time.Duration
	RetryCount   int
}

func DefaultConfig() Config {
	return Config{
		TokenURL:    DefaultTokenURL,
		AnalysisURL: DefaultAnalysisURL,
		Timeout:     defaultTimeout,
		RetryCount:  defaultRetryCount,
	}
}

func (c Config) Validate() error {
	missing := ""
	switch {
	case c.TokenURL == "":
		missing = "token_url"
	case c.AnalysisURL == "":
		missing = "analysis_url"
	case c.ClientID == "":
		missing = "client_id"
	case c.ClientSecret == "":
		missing = "client_secret"
	case c.APIKey == "":
		missing = "api_key"
	}
	if missing == "" {
		return nil
	}

	return errors.New().WithData(ErrInvalidConfig, struct {
		Missing string
	}{
		Missing: missing,
	})
}
