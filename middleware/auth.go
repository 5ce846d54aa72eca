package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/models"
)

// AuthCookieName - cookie с тем же токеном, что и в заголовке Authorization.
const AuthCookieName = "authToken"

// Authenticator проверяет токен и возвращает пользователя, которому он выдан.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Identity, error)
}

// Identify определяет пользователя по токену из заголовка Bearer или из cookie authToken.
// Запрос без валидного токена проходит дальше анонимным: решение о доступе принимает
// охрана операций, а не этот middleware.
func Identify(authn Authenticator, secureCookie bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, identity, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				logger.DebugContext(r.Context(), "request token rejected",
					slog.Bool("from_cookie", fromCookie), slog.Any("error", err))
				if fromCookie {
					ClearAuthCookie(w, secureCookie)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), user, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t, false
			}
		}
	}
	if c, err := r.Cookie(AuthCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// SetAuthCookie выставляет http-only cookie с токеном до момента его истечения.
func SetAuthCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
