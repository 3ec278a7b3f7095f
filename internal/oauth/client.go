package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/NikoDola/hendo-backend/internal/config"
)

var (
	ErrMissingCode = errors.New("missing authorization code")

	// ErrTokenExchangeFailed wraps provider detail for server-side logs.
	// Handlers must never echo the wrapped detail to the client.
	ErrTokenExchangeFailed = errors.New("token exchange failed")
)

// requestTimeout bounds every outbound provider call. A timeout is an
// exchange failure, never retried within the same user-facing request.
const requestTimeout = 15 * time.Second

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Client drives the two-phase authorization-code flow against the identity
// provider.
type Client struct {
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewClient(cfg config.OAuthConfig) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
}

// AuthCodeURL builds the provider authorization URL for one redirect. state
// must be fresh per request; the handler owns its generation and validation.
// An empty redirectURI falls back to the configured callback.
func (c *Client) AuthCodeURL(redirectURI, state string) string {
	conf := *c.conf
	if redirectURI != "" {
		conf.RedirectURL = redirectURI
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for provider tokens. The redirect
// URI must be byte-identical to the one used in the authorization phase or
// the provider rejects the exchange.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (Tokens, error) {
	if code == "" {
		return Tokens{}, ErrMissingCode
	}

	conf := *c.conf
	if redirectURI != "" {
		conf.RedirectURL = redirectURI
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}

	var expiresIn int64
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}
