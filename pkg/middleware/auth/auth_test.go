package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/petstore/pkg/tokens"
)

var secret = []byte("test-access-secret")

type refresherMock struct{ mock.Mock }

func (m *refresherMock) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	args := m.Called(ctx, refreshToken)
	if p, ok := args.Get(0).(*tokens.Pair); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func sign(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := tokens.SignAccess(secret, "6f1c1a8e-4a57-4f4e-8d4b-0f9a9e6f0c11", role, time.Now().Add(ttl))
	require.NoError(t, err)
	return tok
}

func run(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return rec, c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(secret, nil, false)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "bearer ok", header: "Bearer " + sign(t, "customer", time.Minute), want: http.StatusOK},
		{name: "cookie ok", cookie: sign(t, "customer", time.Minute), want: http.StatusOK},
		{name: "bearer expired", header: "Bearer " + sign(t, "customer", -time.Minute), want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: tt.cookie})
			}
			rec, c, err := run(m.RequireAuth, req)
			if tt.want == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, "customer", Role(c))
				id, err := UserID(c)
				require.NoError(t, err)
				assert.Equal(t, "6f1c1a8e-4a57-4f4e-8d4b-0f9a9e6f0c11", id.String())
				return
			}
			assert.Equal(t, tt.want, statusOf(t, err))
		})
	}
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(secret, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, "customer", time.Minute))
	_, _, err := run(m.RequireAdmin, req)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, "groomer", time.Minute))
	_, c, err := run(m.RequireRoles("veterinarian", "groomer", "trainer"), req)
	require.NoError(t, err)
	assert.Equal(t, "groomer", Role(c))
	assert.False(t, IsAdmin(c))
}

func TestAutoRefreshFromCookie(t *testing.T) {
	t.Parallel()

	fresh := sign(t, "customer", time.Minute)
	r := &refresherMock{}
	r.On("Refresh", mock.Anything, "old-refresh").Return(&tokens.Pair{
		AccessToken:  fresh,
		RefreshToken: "new-refresh",
		AccessExp:    time.Now().Add(time.Minute),
		RefreshExp:   time.Now().Add(time.Hour),
	}, nil).Once()
	m := NewAutoRefreshMiddleware(secret, r, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: sign(t, "customer", -time.Minute)})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old-refresh"})

	rec, c, err := run(m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "customer", Role(c))

	cookies := rec.Result().Cookies()
	names := map[string]string{}
	for _, ck := range cookies {
		names[ck.Name] = ck.Value
	}
	assert.Equal(t, fresh, names[tokens.AccessCookie])
	assert.Equal(t, "new-refresh", names[tokens.RefreshCookie])
	r.AssertExpectations(t)
}

func TestAutoRefreshFailureClearsCookies(t *testing.T) {
	t.Parallel()

	r := &refresherMock{}
	r.On("Refresh", mock.Anything, "revoked").Return(nil, errors.New("revoked")).Once()
	m := NewAutoRefreshMiddleware(secret, r, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: sign(t, "customer", -time.Minute)})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "revoked"})

	rec, _, err := run(m.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	for _, ck := range rec.Result().Cookies() {
		assert.Equal(t, -1, ck.MaxAge)
	}
	r.AssertExpectations(t)
}

func TestOptionalAuth(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(secret, nil, false)

	_, c, err := run(m.OptionalAuth, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, Role(c))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, "admin", time.Minute))
	_, c, err = run(m.OptionalAuth, req)
	require.NoError(t, err)
	assert.True(t, IsAdmin(c))
}
