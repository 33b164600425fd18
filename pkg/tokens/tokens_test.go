package tokens

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret")
	refreshSecret = []byte("refresh-secret")
)

func TestAccessRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := SignAccess(accessSecret, "user-1", "admin", time.Now().Add(time.Minute))
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(tok, accessSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestAccessRejects(t *testing.T) {
	t.Parallel()

	expired, err := SignAccess(accessSecret, "u", "customer", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	valid, err := SignAccess(accessSecret, "u", "customer", time.Now().Add(time.Minute))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
		target error
	}{
		{name: "expired", token: expired, secret: accessSecret, target: jwt.ErrTokenExpired},
		{name: "wrong secret", token: valid, secret: []byte("other"), target: jwt.ErrTokenSignatureInvalid},
		{name: "alg none", token: none, secret: accessSecret},
		{name: "garbage", token: "not.a.jwt", secret: accessSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := AccessClaimsFromToken(tt.token, tt.secret)
			require.Error(t, err)
			assert.Nil(t, claims)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
		})
	}
}

func TestRefreshCarriesJTI(t *testing.T) {
	t.Parallel()

	tok, jti, err := SignRefresh(refreshSecret, "user-2", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := RefreshClaimsFromToken(tok, refreshSecret)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "user-2", claims.Subject)

	_, err = RefreshClaimsFromToken(tok, accessSecret)
	assert.Error(t, err)
}

func TestCookies(t *testing.T) {
	t.Parallel()

	c := CreateCookie(AccessCookie, "v", "/", time.Now().Add(time.Minute), true)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	d := DeleteCookie(RefreshCookie, "/", false)
	assert.Equal(t, -1, d.MaxAge)
	assert.Empty(t, d.Value)
}

func TestSha256Hex(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", Sha256Hex("hello"))
	assert.Len(t, NewJTI(), 36)
}
