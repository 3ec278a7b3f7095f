package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikoDola/hendo-backend/internal/config"
	"github.com/NikoDola/hendo-backend/internal/oauth"
)

func testOAuthConfig(tokenURL, userInfoURL string) config.OAuthConfig {
	return config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.hendo.store/callback",
		AuthURL:      "https://provider.example.com/authorize",
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func TestAuthCodeURLParameters(t *testing.T) {
	client := oauth.NewClient(testOAuthConfig("https://provider.example.com/token", ""))

	raw := client.AuthCodeURL("https://app/callback", "state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://app/callback", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "email")
	assert.Equal(t, "provider.example.com", u.Host)
}

func TestAuthCodeURLDefaultRedirect(t *testing.T) {
	client := oauth.NewClient(testOAuthConfig("https://provider.example.com/token", ""))

	u, err := url.Parse(client.AuthCodeURL("", "s"))
	require.NoError(t, err)
	assert.Equal(t, "https://app.hendo.store/callback", u.Query().Get("redirect_uri"))
}

// fakeProvider is a stub token endpoint that honors the single-use contract
// for authorization codes.
type fakeProvider struct {
	mu       sync.Mutex
	consumed map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{consumed: make(map[string]bool)}
}

func (p *fakeProvider) tokenHandler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	code := r.FormValue("code")

	p.mu.Lock()
	used := p.consumed[code]
	p.consumed[code] = true
	p.mu.Unlock()

	if code != "valid-code" || used {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  "provider-access-token",
		"refresh_token": "provider-refresh-token",
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
}

func TestExchangeSuccess(t *testing.T) {
	provider := newFakeProvider()
	srv := httptest.NewServer(http.HandlerFunc(provider.tokenHandler))
	defer srv.Close()

	client := oauth.NewClient(testOAuthConfig(srv.URL, ""))

	tokens, err := client.Exchange(context.Background(), "valid-code", "")
	require.NoError(t, err)
	assert.Equal(t, "provider-access-token", tokens.AccessToken)
	assert.Equal(t, "provider-refresh-token", tokens.RefreshToken)
	assert.InDelta(t, 3600, tokens.ExpiresIn, 10)
}

func TestExchangeMissingCode(t *testing.T) {
	client := oauth.NewClient(testOAuthConfig("https://provider.example.com/token", ""))

	_, err := client.Exchange(context.Background(), "", "")
	assert.ErrorIs(t, err, oauth.ErrMissingCode)
}

// Codes are single-use by provider contract: a consumed code fails the
// exchange every subsequent time.
func TestExchangeConsumedCodeFailsTwice(t *testing.T) {
	provider := newFakeProvider()
	srv := httptest.NewServer(http.HandlerFunc(provider.tokenHandler))
	defer srv.Close()

	client := oauth.NewClient(testOAuthConfig(srv.URL, ""))

	_, err := client.Exchange(context.Background(), "valid-code", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := client.Exchange(context.Background(), "valid-code", "")
		assert.ErrorIs(t, err, oauth.ErrTokenExchangeFailed, "attempt %d", i+1)
	}
}

func TestExchangeProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // immediately unreachable

	client := oauth.NewClient(testOAuthConfig(srv.URL, ""))

	_, err := client.Exchange(context.Background(), "valid-code", "")
	assert.ErrorIs(t, err, oauth.ErrTokenExchangeFailed)
}

func TestFetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":   "provider-uid-1",
			"email": "jane@example.com",
			"name":  "Jane Doe",
		})
	}))
	defer srv.Close()

	client := oauth.NewClient(testOAuthConfig("https://unused", srv.URL))

	info, err := client.FetchUserInfo(context.Background(), "provider-access-token")
	require.NoError(t, err)
	assert.Equal(t, "provider-uid-1", info.Subject)
	assert.Equal(t, "jane@example.com", info.Email)
	assert.Equal(t, "Jane Doe", info.Name)

	_, err = client.FetchUserInfo(context.Background(), "wrong-token")
	assert.ErrorIs(t, err, oauth.ErrTokenExchangeFailed)
}
