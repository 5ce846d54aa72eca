package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceRegister(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Auth.Register(f.ctx, RegisterInput{
		Email:     "  Alice@Example.com ",
		Password:  testPassword,
		FirstName: "Alice",
		LastName:  "Runner",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEqual(t, testPassword, res.User.PasswordHash)

	user, identity, err := f.svc.Auth.Authenticate(f.ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
	assert.Equal(t, "alice@example.com", identity.Email)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "Alice", "Runner")

	_, err := f.svc.Auth.Register(f.ctx, RegisterInput{
		Email:     "ALICE@example.com",
		Password:  testPassword,
		FirstName: "Other",
		LastName:  "Alice",
	})
	assert.ErrorIs(t, err, ErrUserEmailConflict)
	assert.ErrorIs(t, err, ErrConflict)

	users, err := f.svc.Users.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Password: testPassword, FirstName: "A", LastName: "B"}},
		{"malformed email", RegisterInput{Email: "not-an-email", Password: testPassword, FirstName: "A", LastName: "B"}},
		{"short password", RegisterInput{Email: "a@example.com", Password: "short", FirstName: "A", LastName: "B"}},
		{"missing password", RegisterInput{Email: "a@example.com", FirstName: "A", LastName: "B"}},
		{"missing names", RegisterInput{Email: "a@example.com", Password: testPassword, FirstName: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Auth.Register(f.ctx, tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestAuthServiceLoginDoesNotRevealUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "Alice", "Runner")

	_, wrongPassword := f.svc.Auth.Login(f.ctx, LoginInput{Email: "alice@example.com", Password: "wrong-password"})
	_, unknownEmail := f.svc.Auth.Login(f.ctx, LoginInput{Email: "bob@example.com", Password: "wrong-password"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.ErrorIs(t, wrongPassword, ErrUnauthenticated)

	res, err := f.svc.Auth.Login(f.ctx, LoginInput{Email: "ALICE@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestAuthServiceAuthenticate(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "Alice", "Runner")
	res, err := f.svc.Auth.Login(f.ctx, LoginInput{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	_, _, err = f.svc.Auth.Authenticate(f.ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, f.svc.Users.Delete(f.ctx, alice.ID))
	_, _, err = f.svc.Auth.Authenticate(f.ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
