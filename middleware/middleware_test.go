package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/models"
)

type stubAuthenticator map[string]*models.User

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, *auth.Identity, error) {
	user, ok := s[token]
	if !ok {
		return nil, nil, errors.New("invalid token")
	}
	return user, &auth.Identity{UserID: user.ID, Email: user.Email}, nil
}

func runIdentify(t *testing.T, req *http.Request) (*models.User, *httptest.ResponseRecorder) {
	t.Helper()
	authn := stubAuthenticator{
		"good":  {ID: 1, Email: "a@example.com"},
		"other": {ID: 2, Email: "b@example.com"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen *models.User
	h := Identify(authn, true, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec
}

func TestIdentify(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Authorization", "Bearer good")
		user, _ := runIdentify(t, req)
		require.NotNil(t, user)
		assert.Equal(t, 1, user.ID)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Authorization", "bearer other")
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "good"})
		user, _ := runIdentify(t, req)
		require.NotNil(t, user)
		assert.Equal(t, 2, user.ID)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "good"})
		user, rec := runIdentify(t, req)
		require.NotNil(t, user)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		user, _ := runIdentify(t, req)
		assert.Nil(t, user)
	})

	t.Run("invalid bearer stays anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Authorization", "Bearer forged")
		user, rec := runIdentify(t, req)
		assert.Nil(t, user)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("invalid cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "forged"})
		user, rec := runIdentify(t, req)
		assert.Nil(t, user)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, AuthCookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.True(t, cookies[0].MaxAge < 0)
	})
}

func TestSetAuthCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetAuthCookie(rec, "tok", time.Now().Add(time.Hour), false)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Greater(t, c.MaxAge, 0)
}

func TestGetUserIDFromContext(t *testing.T) {
	_, err := GetUserIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)

	ctx := WithIdentity(context.Background(), &models.User{ID: 7}, &auth.Identity{UserID: 7})
	id, err := GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, 7, IdentityFromContext(ctx).UserID)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIP(req))
	req.RemoteAddr = "192.0.2.11"
	assert.Equal(t, "192.0.2.11", ClientIP(req))
}
