package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for persisted tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/inventory-admin/internal/model"
)

// DefaultTokenTTL is the lifetime of an access token when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// signingMethod is the only algorithm tokens are signed with or accepted in.
var signingMethod = jwt.SigningMethodHS256

var (
	// ErrTokenExpired is returned by Verify for a well-formed, correctly
	// signed token past its exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed covers everything else: bad encoding, bad
	// signature, unexpected algorithm, missing claims.
	ErrTokenMalformed = errors.New("token malformed or tampered")
	// ErrMissingSecret is returned by NewTokenIssuer for an empty secret.
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// AccessClaims is the payload of an access token. The registered claims
// carry the token id (jti), account id (sub), iat and exp.
type AccessClaims struct {
	Email string             `json:"email"`
	Name  string             `json:"name"`
	Role  model.RoleSnapshot `json:"role"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *AccessClaims) AccountID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// IssuedToken is a signed token together with the facts the token store
// needs to persist it.
type IssuedToken struct {
	Token     string    // the serialized JWT string
	ID        string    // jti
	IssuedAt  time.Time // UTC issuance instant
	ExpiresAt time.Time // UTC expiration time
}

// TokenIssuer signs and verifies access tokens with a process-wide HMAC
// secret. It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption customizes a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(t *TokenIssuer) { t.now = now }
}

// NewTokenIssuer builds an issuer. A zero ttl selects DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration, opts ...IssuerOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	t := &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs a token for the account. The token id is a fresh UUID.
func (t *TokenIssuer) Issue(u model.User, role model.RoleSnapshot) (IssuedToken, error) {
	now := t.now().UTC().Truncate(time.Second)
	exp := now.Add(t.ttl)
	id := uuid.NewString()
	claims := AccessClaims{
		Email: u.Email,
		Name:  u.Name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Token: signed, ID: id, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks the signature, the algorithm and the expiry of raw. It
// returns ErrTokenExpired or ErrTokenMalformed on failure. iat is not
// checked, so tokens from an issuer whose clock runs ahead still verify.
func (t *TokenIssuer) Verify(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if tok.Method.Alg() != signingMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !tok.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenMalformed)
	}
	return claims, nil
}

// HashToken returns the SHA‑256 hash of a raw token as a hex string.
// Storing only the hash prevents stolen database rows from being replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
