package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/memora/memora-load/internal/identity"
)

// StaticTokenProvider implements a provider that returns a pre-minted bearer
// token. Tokens are never rotated during a run.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a new static token provider with the given token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{
		token: token,
	}
}

// ForIdentity returns a provider bound to id, or nil when id is nil so that
// unauthenticated virtual users send no Authorization header.
func ForIdentity(id *identity.Identity) Provider {
	if id == nil || id.Token == "" {
		return nil
	}
	return NewStaticTokenProvider(id.Token)
}

// Token returns the static token immediately without any network calls.
func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

// InjectHeader injects the static token into the Authorization header.
func (p *StaticTokenProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.token))
	return nil
}

// Close is a no-op for static token providers.
func (p *StaticTokenProvider) Close() error {
	return nil
}
