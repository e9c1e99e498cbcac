// Package mint creates and deletes the pre-authenticated test accounts that
// virtual users run as.
//
// Accounts are minted by signing a Firebase custom token with a service
// account key and exchanging it at the Identity Toolkit for an ID token.
package mint

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// customTokenAudience is the fixed audience of Firebase custom tokens.
const customTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

// customTokenTTL is the maximum lifetime the Identity Toolkit accepts.
const customTokenTTL = time.Hour

// ErrNoServiceAccount is returned when no service account key is configured.
var ErrNoServiceAccount = errors.New("service account key is required")

// ServiceAccount is the subset of a Google service account key file used to
// sign custom tokens.
type ServiceAccount struct {
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`

	key *rsa.PrivateKey
}

// LoadServiceAccount reads and parses a service account key file.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	if path == "" {
		return nil, ErrNoServiceAccount
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	return ParseServiceAccount(data)
}

// ParseServiceAccount decodes a service account key from JSON.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("decode service account: %w", err)
	}
	if sa.ClientEmail == "" {
		return nil, errors.New("service account: client_email is missing")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("service account: private_key: %w", err)
	}
	sa.key = key
	return &sa, nil
}

type customClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

// CustomToken signs an RS256 custom token for uid.
func (sa *ServiceAccount) CustomToken(uid string, now time.Time) (string, error) {
	if sa == nil || sa.key == nil {
		return "", ErrNoServiceAccount
	}
	if uid == "" {
		return "", errors.New("uid is required")
	}
	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sa.ClientEmail,
			Subject:   sa.ClientEmail,
			Audience:  jwt.ClaimStrings{customTokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(customTokenTTL)),
		},
		UID: uid,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if sa.PrivateKeyID != "" {
		token.Header["kid"] = sa.PrivateKeyID
	}
	return token.SignedString(sa.key)
}
