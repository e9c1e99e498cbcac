package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// APIKeyEnv names the environment variable holding the web API key.
const APIKeyEnv = "MEMORA_FIREBASE_API_KEY"

// DefaultToolkitURL is the public Identity Toolkit endpoint.
const DefaultToolkitURL = "https://identitytoolkit.googleapis.com"

const maxResponseBytes = 64 << 10

// ErrNoAPIKey is returned when the web API key is not configured.
var ErrNoAPIKey = errors.New(APIKeyEnv + " is not set")

// ToolkitError is an error response from the Identity Toolkit.
type ToolkitError struct {
	StatusCode int
	Message    string
}

func (e *ToolkitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity toolkit: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("identity toolkit: HTTP %d: %s", e.StatusCode, e.Message)
}

// Toolkit calls the Identity Toolkit accounts API.
type Toolkit struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewToolkit returns a Toolkit rooted at baseURL. An empty baseURL selects
// DefaultToolkitURL.
func NewToolkit(httpClient *http.Client, baseURL, apiKey string) (*Toolkit, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultToolkitURL
	}
	return &Toolkit{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}, nil
}

// SignInWithCustomToken exchanges a custom token for an ID token.
func (t *Toolkit) SignInWithCustomToken(ctx context.Context, customToken string) (idToken, localID string, err error) {
	body, err := t.post(ctx, "accounts:signInWithCustomToken", map[string]interface{}{
		"token":             customToken,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", "", err
	}
	res := gjson.GetManyBytes(body, "idToken", "localId")
	if res[0].String() == "" {
		return "", "", errors.New("identity toolkit: response has no idToken")
	}
	return res[0].String(), res[1].String(), nil
}

// DeleteAccount deletes the account that owns idToken.
func (t *Toolkit) DeleteAccount(ctx context.Context, idToken string) error {
	_, err := t.post(ctx, "accounts:delete", map[string]string{"idToken": idToken})
	return err
}

func (t *Toolkit) post(ctx context.Context, method string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1/%s?key=%s", t.baseURL, method, url.QueryEscape(t.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ToolkitError{
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(body, "error.message").String(),
		}
	}
	return body, nil
}
