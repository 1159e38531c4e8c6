package edflex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openlms/edflex-connector/internal/cache"
	"github.com/openlms/edflex-connector/internal/metrics"
)

// tokenSafetyMargin is subtracted from the reported token lifetime so a
// token is never used right at its expiry boundary. tokenMinValidity is the
// floor applied when the reported lifetime is shorter than the margin.
const (
	tokenSafetyMargin = 30
	tokenMinValidity  = 30
)

// RequestAccessToken performs a client-credentials POST against the auth
// endpoint and caches the resulting token. The cached expiry is
// now + max(30, expires_in - 30) seconds. A response without a usable token
// or expiry fails with ErrAuth and caches nothing.
func (c *Client) RequestAccessToken(ctx context.Context) (AccessToken, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return AccessToken{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(authPath), bytes.NewReader(payload))
	if err != nil {
		return AccessToken{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordTokenRequest("transport_error")
		return AccessToken{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	raw, err := parseResponse(body, resp.StatusCode, true)
	if err != nil {
		metrics.RecordTokenRequest("error")
		return AccessToken{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		metrics.RecordTokenRequest("error")
		return AccessToken{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	if tr.AccessToken == "" || tr.ExpiresIn == 0 {
		metrics.RecordTokenRequest("error")
		return AccessToken{}, fmt.Errorf("%w: token response missing access_token or expires_in", ErrAuth)
	}

	margin := tr.ExpiresIn - tokenSafetyMargin
	if margin < tokenMinValidity {
		margin = tokenMinValidity
	}

	token := AccessToken{
		Token:     tr.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(margin) * time.Second),
	}

	c.store.Set(cache.KeyAccessToken, token)
	metrics.RecordTokenRequest("success")

	c.logger.Debug("access token obtained", "expires_at", token.ExpiresAt)

	return token, nil
}

// AccessToken returns a valid cached token, requesting a fresh one when the
// cache is empty or holds an expired entry. An expired entry is purged
// before the new request.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if v, ok := c.store.Get(cache.KeyAccessToken); ok {
		if token, ok := v.(AccessToken); ok {
			if !token.Expired(c.now()) {
				return token.Token, nil
			}
			c.store.Delete(cache.KeyAccessToken)
		}
	}

	token, err := c.RequestAccessToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

// CanConnect reports whether the API is reachable with the configured
// credentials. It never returns an error: any failure during the probe is
// logged and reported as false.
func (c *Client) CanConnect(ctx context.Context) bool {
	if _, err := c.RequestAccessToken(ctx); err != nil {
		c.logger.Info("connectivity probe failed", "error", err)
		return false
	}
	return true
}
