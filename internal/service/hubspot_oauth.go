package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"captia/internal/config"

	"golang.org/x/oauth2"
)

const (
	hubspotAuthURL       = "https://app.hubspot.com/oauth/authorize"
	hubspotTokenEndpoint = "/oauth/v1/token"
)

// OAuthTokens is the result of an authorization-code exchange.
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// OAuthExchanger trades an authorization code for CRM tokens.
type OAuthExchanger interface {
	Exchange(ctx context.Context, code string) (*OAuthTokens, error)
}

type hubspotOAuth struct {
	conf   *oauth2.Config
	client *http.Client
}

// NewHubSpotOAuth creates an OAuthExchanger for the HubSpot app credentials.
func NewHubSpotOAuth(cfg *config.Config) OAuthExchanger {
	return &hubspotOAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.HubSpotClientID,
			ClientSecret: cfg.HubSpotClientSecret,
			RedirectURL:  cfg.HubSpotRedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   hubspotAuthURL,
				TokenURL:  strings.TrimRight(cfg.HubSpotBaseURL, "/") + hubspotTokenEndpoint,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{Timeout: cfg.CRMRequestTimeout()},
	}
}

func (o *hubspotOAuth) Exchange(ctx context.Context, code string) (*OAuthTokens, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrInvalidRequest)
	}
	if o.conf.ClientID == "" || o.conf.ClientSecret == "" {
		return nil, errors.New("hubspot oauth client is not configured")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return &OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}
