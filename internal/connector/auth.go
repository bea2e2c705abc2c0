package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const defaultTokenURL = "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token"

const tokenScope = "https://api.botframework.com/.default"

// Tokens are refreshed this long before they expire.
const tokenExpirySlack = 60 * time.Second

// tokenSource fetches and caches the client-credentials token the connector
// endpoints require.
type tokenSource struct {
	appID       string
	appPassword string
	tokenURL    string
	client      *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(appID, appPassword string, client *http.Client) *tokenSource {
	return &tokenSource{
		appID:       appID,
		appPassword: appPassword,
		tokenURL:    defaultTokenURL,
		client:      client,
	}
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiry.Add(-tokenExpirySlack)) {
		return t.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.appID)
	form.Set("client_secret", t.appPassword)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.WithMessage(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.WithMessage(err, "failed to request token")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", InvalidResponseStatusCodeError(resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		return "", errors.WithMessage(err, "failed to decode token response")
	}
	if body.AccessToken == "" {
		return "", errors.New("token response contained no access token")
	}

	t.token = body.AccessToken
	t.expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)

	return t.token, nil
}
