package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/oklog/ulid/v2"
)

// MinSecretLength is the shortest signing secret accepted
const MinSecretLength = 32

// DefaultSessionTTL bounds how long a token (and a stale role inside it) stays valid
const DefaultSessionTTL = 24 * time.Hour

// DefaultIssuer is written to and required in the iss claim
const DefaultIssuer = "storefront-admin"

// AdminClaims represents JWT claims for admin sessions
type AdminClaims struct {
	AdminID  string      `json:"admin_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Token is a freshly minted session credential
type Token struct {
	Value     string               `json:"token"`
	IssuedAt  time.Time            `json:"issued_at"`
	ExpiresAt time.Time            `json:"expires_at"`
	Identity  models.AdminIdentity `json:"-"`
}

// SessionConfig configures token signing
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// Clock overrides time.Now; nil uses the wall clock
	Clock func() time.Time
}

// SessionManager signs and verifies stateless admin session tokens (HS256).
// It is built once at startup and is safe for concurrent use.
type SessionManager struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	now         func() time.Time
	revocations RevocationList
}

// NewSessionManager validates cfg and creates a manager. revocations may be nil,
// in which case tokens stay valid until expiry.
func NewSessionManager(cfg SessionConfig, revocations RevocationList) (*SessionManager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters long", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &SessionManager{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		ttl:         cfg.TTL,
		now:         cfg.Clock,
		revocations: revocations,
	}, nil
}

// TTL returns the lifetime of issued tokens
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// RevocationEnabled reports whether Revoke has any effect
func (m *SessionManager) RevocationEnabled() bool {
	return m.revocations != nil
}

// Issue mints a token for account
func (m *SessionManager) Issue(account *models.AdminAccount) (*Token, error) {
	// NumericDate carries whole seconds
	issuedAt := m.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)

	claims := AdminClaims{
		AdminID:  account.ID.String(),
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   account.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ID:        ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Token{
		Value:     signed,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Identity: models.AdminIdentity{
			AccountID: account.ID,
			Username:  account.Username,
			Role:      account.Role,
			TokenID:   claims.ID,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}, nil
}

// Verify checks structure, expiry and signature, in that order, and returns the
// embedded identity. Expired tokens report ErrSessionExpired whatever their signature.
func (m *SessionManager) Verify(ctx context.Context, raw string) (*models.AdminIdentity, error) {
	if raw == "" {
		return nil, ErrSessionMalformed
	}

	unverified := &AdminClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, unverified); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionMalformed, err)
	}
	if unverified.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrSessionMalformed)
	}
	if !m.now().Before(unverified.ExpiresAt.Time) {
		return nil, ErrSessionExpired
	}

	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrSessionExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrSessionMalformed, err)
		}
	}

	accountID, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad admin_id claim", ErrSessionMalformed)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: bad role claim", ErrSessionMalformed)
	}

	if m.revocations != nil && claims.ID != "" {
		revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: revocation lookup: %w", ErrUnavailable, err)
		}
		if revoked {
			return nil, ErrSessionRevoked
		}
	}

	identity := &models.AdminIdentity{
		AccountID: accountID,
		Username:  claims.Username,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

// Revoke denies identity's token until it would have expired anyway.
// Without a revocation list this is a no-op.
func (m *SessionManager) Revoke(ctx context.Context, identity *models.AdminIdentity) error {
	if m.revocations == nil || identity.TokenID == "" {
		return nil
	}
	if !identity.ExpiresAt.After(m.now()) {
		return nil
	}
	if err := m.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("%w: revoke session: %w", ErrUnavailable, err)
	}
	return nil
}
