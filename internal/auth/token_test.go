package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

func newTestIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		Secret:     "unit-test-secret",
		Issuer:     "odyssey",
		Audience:   "campus",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Leeway:     30 * time.Second,
	})
	require.NoError(t, err)
	issuer.now = func() time.Time { return *now }
	return issuer
}

func TestIssueAndVerifyAccess(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	issuer := newTestIssuer(t, &now)

	access := rbac.Resolve(rbac.Role{Allowed: []string{"grades"}, Disallowed: []string{"grades:upload"}})
	pair, err := issuer.Issue(now, Subject{UserID: 42, Email: "a@b.test", UserType: UserTypeFaculty, Access: access})
	require.NoError(t, err)
	require.NotEmpty(t, pair.SessionID)
	require.Equal(t, now.Add(15*time.Minute), pair.AccessExpiresAt)
	require.Equal(t, now.Add(24*time.Hour), pair.RefreshExpiresAt)

	principal, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(42), principal.UserID)
	require.Equal(t, UserTypeFaculty, principal.UserType)
	require.True(t, principal.Access.Equal(access))
	require.False(t, principal.TestingMode)
	require.Equal(t, now.UnixMicro(), principal.IssuedAt.UnixMicro())

	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	id, err := refresh.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, pair.SessionID, refresh.ID)
	require.Equal(t, now.UnixMicro(), refresh.IssuedAt().UnixMicro())
}

func TestVerifyRejectsSwappedTokenTypes(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	pair, err := issuer.Issue(now, Subject{UserID: 1})
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = issuer.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyExpiredHonoursLeeway(t *testing.T) {
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := issued
	issuer := newTestIssuer(t, &now)
	token, _, err := issuer.IssueAccess(issued, Subject{UserID: 1})
	require.NoError(t, err)

	now = issued.Add(15*time.Minute + 20*time.Second)
	_, err = issuer.VerifyAccess(token)
	require.NoError(t, err)

	now = issued.Add(15*time.Minute + 31*time.Second)
	_, err = issuer.VerifyAccess(token)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
	require.NotErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyRejectsTampering(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	token, _, err := issuer.IssueAccess(now, Subject{UserID: 1, Access: rbac.Access{Allowed: []string{"grades:view"}}})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "token_type": "access", "access": map[string]any{"allowed": []string{"admin"}},
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(), "iss": "odyssey", "aud": "campus",
	})
	forgedToken, err := forged.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	for _, raw := range []string{
		forgedToken,
		parts[0] + "." + parts[1] + ".bm90LWEtc2lnbmF0dXJl",
		"garbage",
		"",
	} {
		_, err := issuer.VerifyAccess(raw)
		require.ErrorIs(t, err, shared.ErrUnauthenticated)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "token_type": "access", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
		"iss": "odyssey", "aud": "campus",
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.VerifyAccess(raw)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTestingAccessTravelsInToken(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	overlay := rbac.Resolve(rbac.Role{Allowed: []string{"grades:view"}})
	token, _, err := issuer.IssueAccess(now, Subject{
		UserID:        7,
		Access:        rbac.Access{Allowed: []string{"admin"}},
		TestingMode:   true,
		TestingAccess: overlay,
	})
	require.NoError(t, err)

	principal, err := issuer.VerifyAccess(token)
	require.NoError(t, err)
	require.True(t, principal.TestingMode)
	require.True(t, principal.TestingAccess.Equal(overlay))
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)
}
