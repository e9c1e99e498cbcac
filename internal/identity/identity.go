// Package identity loads and persists the pool of pre-minted identities
// (uid + bearer token pairs) that virtual users authenticate with.
package identity

import (
	"errors"
	"math/rand"
)

// ErrEmptyPool is returned when an authenticated workload is configured but
// no identities are available.
var ErrEmptyPool = errors.New("identity pool is empty")

// Identity is a single pre-authenticated account. UID is optional; files
// produced by older minting runs carry only the token.
type Identity struct {
	UID   string `json:"uid,omitempty"`
	Token string `json:"token"`
}

// Pool is an immutable collection of identities. The zero value is an empty
// pool. A Pool is safe for concurrent use because it is never mutated after
// construction.
type Pool struct {
	identities []Identity
}

// NewPool copies ids into a new Pool, dropping entries without a token.
func NewPool(ids []Identity) Pool {
	kept := make([]Identity, 0, len(ids))
	for _, id := range ids {
		if id.Token == "" {
			continue
		}
		kept = append(kept, id)
	}
	return Pool{identities: kept}
}

// Len returns the number of identities in the pool.
func (p Pool) Len() int {
	return len(p.identities)
}

// Empty reports whether the pool holds no identities.
func (p Pool) Empty() bool {
	return len(p.identities) == 0
}

// Pick draws one identity uniformly at random, with replacement.
// It returns false when the pool is empty.
func (p Pool) Pick(rng *rand.Rand) (Identity, bool) {
	if len(p.identities) == 0 || rng == nil {
		return Identity{}, false
	}
	return p.identities[rng.Intn(len(p.identities))], true
}

// All returns a copy of the pool contents in file order.
func (p Pool) All() []Identity {
	return append([]Identity(nil), p.identities...)
}
