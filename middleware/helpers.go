package middleware

import (
	"context"
	"errors"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/models"
)

type contextKey string

const (
	userContextKey     contextKey = "user"
	identityContextKey contextKey = "identity"
)

var ErrNoIdentity = errors.New("user not found in context")

func WithIdentity(ctx context.Context, user *models.User, identity *auth.Identity) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, identityContextKey, identity)
}

// UserFromContext возвращает пользователя, определенного Identify, или nil для анонимного запроса.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func IdentityFromContext(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityContextKey).(*auth.Identity)
	return identity
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ID <= 0 {
		return 0, ErrNoIdentity
	}
	return user.ID, nil
}
