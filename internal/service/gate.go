package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/repository"
	"github.com/iliyamo/inventory-admin/internal/utils"
)

// DefaultLookupTimeout bounds the store and directory reads of one
// authentication.
const DefaultLookupTimeout = 3 * time.Second

// TokenVerifier checks signature, algorithm and expiry of a raw token.
type TokenVerifier interface {
	Verify(raw string) (*utils.AccessClaims, error)
}

// RevocationChecker answers whether a token id is blacklisted.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// AccountLookup loads the live account record.
type AccountLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Gate is the access pipeline run for every protected request. It keeps no
// state between calls.
type Gate struct {
	verifier TokenVerifier
	tokens   RevocationChecker
	users    AccountLookup
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewGate builds a gate. A zero timeout selects DefaultLookupTimeout.
func NewGate(verifier TokenVerifier, tokens RevocationChecker, users AccountLookup, timeout time.Duration, log logrus.FieldLogger) *Gate {
	if verifier == nil || tokens == nil || users == nil {
		panic("nil dependency passed to NewGate")
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{verifier: verifier, tokens: tokens, users: users, timeout: timeout, log: log.WithField("component", "access_gate")}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// Authenticate runs the gate stages in order and stops at the first
// failure:
//
//  1. bearer extraction
//  2. signature, algorithm and expiry
//  3. revocation record
//  4. live account status
//
// On success it returns the identity built from the token claims.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (model.Identity, error) {
	raw, ok := BearerToken(authorization)
	if !ok {
		return model.Identity{}, ErrNoToken
	}

	claims, err := g.verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return model.Identity{}, ErrTokenExpired
		}
		g.log.WithError(err).Debug("token rejected")
		return model.Identity{}, ErrInvalidToken
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return model.Identity{}, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	revoked, err := g.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		g.log.WithError(err).WithField("token_id", claims.ID).Error("revocation lookup failed")
		return model.Identity{}, internalErr("revocation lookup", err)
	}
	if revoked {
		return model.Identity{}, ErrTokenRevoked
	}

	u, err := g.users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrAccountNotFound
		}
		g.log.WithError(err).WithField("account_id", accountID).Error("account lookup failed")
		return model.Identity{}, internalErr("account lookup", err)
	}
	if !u.IsActive() {
		return model.Identity{}, ErrAccountInactive
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return model.Identity{
		AccountID: accountID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: exp,
	}, nil
}
