package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memora/memora-load/internal/identity"
)

// Minter creates and deletes test accounts.
type Minter struct {
	account *ServiceAccount
	toolkit *Toolkit
	log     *zap.Logger
	now     func() time.Time
	newUID  func() string
}

// NewMinter returns a Minter. account may be nil when only deleting.
func NewMinter(account *ServiceAccount, toolkit *Toolkit, log *zap.Logger) *Minter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Minter{
		account: account,
		toolkit: toolkit,
		log:     log,
		now:     time.Now,
		newUID:  uuid.NewString,
	}
}

// Mint creates n accounts and returns their identities. Accounts that fail to
// mint are logged and skipped; an error is returned only when none succeed.
func (m *Minter) Mint(ctx context.Context, n int) ([]identity.Identity, error) {
	if m.account == nil {
		return nil, ErrNoServiceAccount
	}
	ids := make([]identity.Identity, 0, n)
	var errs []error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		uid := m.newUID()
		token, err := m.mintOne(ctx, uid)
		if err != nil {
			m.log.Warn("mint failed", zap.String("uid", uid), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		m.log.Debug("minted identity", zap.String("uid", uid))
		ids = append(ids, identity.Identity{UID: uid, Token: token})
	}
	if len(ids) == 0 && n > 0 {
		return nil, fmt.Errorf("no identities minted: %w", errors.Join(errs...))
	}
	return ids, nil
}

func (m *Minter) mintOne(ctx context.Context, uid string) (string, error) {
	custom, err := m.account.CustomToken(uid, m.now())
	if err != nil {
		return "", err
	}
	idToken, _, err := m.toolkit.SignInWithCustomToken(ctx, custom)
	return idToken, err
}

// Delete removes every account in ids. It attempts all of them and returns
// the joined errors of those that failed.
func (m *Minter) Delete(ctx context.Context, ids []identity.Identity) (int, error) {
	deleted := 0
	var errs []error
	for _, id := range ids {
		if err := m.toolkit.DeleteAccount(ctx, id.Token); err != nil {
			m.log.Warn("delete failed", zap.String("uid", id.UID), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", id.UID, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
