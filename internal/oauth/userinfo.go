package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// UserInfo is the provider's verified identity payload.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// FetchUserInfo resolves the authenticated subject behind an access token.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: userinfo request: %v", ErrTokenExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, fmt.Errorf("%w: userinfo status %d", ErrTokenExchangeFailed, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return UserInfo{}, fmt.Errorf("%w: decode userinfo: %v", ErrTokenExchangeFailed, err)
	}
	return info, nil
}
