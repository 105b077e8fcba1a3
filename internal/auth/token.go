package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// TokenType distinguishes access from refresh credentials.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Subject is the identity and access embedded into an access token.
type Subject struct {
	UserID        int64
	Email         string
	UserType      string
	Access        rbac.Access
	TestingMode   bool
	TestingAccess rbac.Access
}

// TokenPair holds a signed access and refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

type accessClaims struct {
	jwt.RegisteredClaims

	Email         string       `json:"email"`
	UserType      string       `json:"user_type"`
	Access        rbac.Access  `json:"access"`
	TestingMode   bool         `json:"testing_mode,omitempty"`
	TestingAccess *rbac.Access `json:"testing_access,omitempty"`
	TokenType     TokenType    `json:"token_type"`
	IssuedAtMicro int64        `json:"iat_us"`
}

// RefreshClaims are the claims carried by a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims

	TokenType     TokenType `json:"token_type"`
	IssuedAtMicro int64     `json:"iat_us"`
}

// UserID parses the subject claim.
func (c RefreshClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// IssuedAt returns the issue instant at microsecond precision.
func (c RefreshClaims) IssuedAt() time.Time {
	return time.UnixMicro(c.IssuedAtMicro)
}

// TokenIssuer signs and verifies HS256 credentials.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	parser     *jwt.Parser
	now        func() time.Time
}

// NewTokenIssuer validates cfg and constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	issuer := &TokenIssuer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return issuer.now() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	issuer.parser = jwt.NewParser(opts...)
	return issuer, nil
}

// AccessTTL returns the access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

// Issue signs a new access and refresh token for subject.
func (t *TokenIssuer) Issue(now time.Time, subject Subject) (TokenPair, error) {
	access, accessExp, err := t.IssueAccess(now, subject)
	if err != nil {
		return TokenPair{}, err
	}
	sessionID := uuid.NewString()
	refreshExp := now.Add(t.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: t.registered(now, refreshExp, subject.UserID, sessionID),
		TokenType:        TokenTypeRefresh,
		IssuedAtMicro:    now.UnixMicro(),
	}
	refresh, err := t.sign(claims)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
	}, nil
}

// IssueAccess signs an access token only.
func (t *TokenIssuer) IssueAccess(now time.Time, subject Subject) (string, time.Time, error) {
	exp := now.Add(t.accessTTL)
	claims := accessClaims{
		RegisteredClaims: t.registered(now, exp, subject.UserID, uuid.NewString()),
		Email:            subject.Email,
		UserType:         subject.UserType,
		Access:           subject.Access,
		TestingMode:      subject.TestingMode,
		TokenType:        TokenTypeAccess,
		IssuedAtMicro:    now.UnixMicro(),
	}
	if subject.TestingMode {
		overlay := subject.TestingAccess
		claims.TestingAccess = &overlay
	}
	signed, err := t.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess validates an access token and decodes its principal.
func (t *TokenIssuer) VerifyAccess(raw string) (rbac.Principal, error) {
	var claims accessClaims
	if err := t.parse(raw, &claims); err != nil {
		return rbac.Principal{}, err
	}
	if claims.TokenType != TokenTypeAccess {
		return rbac.Principal{}, fmt.Errorf("%w: unexpected token type", shared.ErrUnauthenticated)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("%w: malformed subject", shared.ErrUnauthenticated)
	}
	principal := rbac.Principal{
		UserID:      userID,
		Email:       claims.Email,
		UserType:    claims.UserType,
		Access:      claims.Access,
		TestingMode: claims.TestingMode,
		TokenID:     claims.ID,
		IssuedAt:    time.UnixMicro(claims.IssuedAtMicro),
	}
	if claims.TestingAccess != nil {
		principal.TestingAccess = *claims.TestingAccess
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

// VerifyRefresh validates a refresh token.
func (t *TokenIssuer) VerifyRefresh(raw string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := t.parse(raw, &claims); err != nil {
		return RefreshClaims{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return RefreshClaims{}, fmt.Errorf("%w: unexpected token type", shared.ErrUnauthenticated)
	}
	if _, err := claims.UserID(); err != nil {
		return RefreshClaims{}, fmt.Errorf("%w: malformed subject", shared.ErrUnauthenticated)
	}
	return claims, nil
}

func (t *TokenIssuer) parse(raw string, claims jwt.Claims) error {
	_, err := t.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}
}

func (t *TokenIssuer) registered(now, exp time.Time, userID int64, id string) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        id,
	}
	if t.audience != "" {
		claims.Audience = jwt.ClaimStrings{t.audience}
	}
	return claims
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

var _ rbac.Verifier = (*TokenIssuer)(nil)
