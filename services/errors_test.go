package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{ErrInvalidCredentials, ErrUnauthenticated},
		{ErrNotClubAdmin, ErrForbidden},
		{ErrClubNotFound, ErrNotFound},
		{ErrAlreadyMember, ErrConflict},
		{ErrInvalidScore, ErrValidationFailed},
		{ValidationError("title is required"), ErrValidationFailed},
		{fmt.Errorf("wrapped: %w", ErrInvitationConflict), ErrConflict},
		{errors.New("db is down"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestDomainErrorsKeepIdentity(t *testing.T) {
	assert.ErrorIs(t, ErrClubNotFound, ErrClubNotFound)
	assert.ErrorIs(t, ErrClubNotFound, ErrNotFound)
	assert.False(t, errors.Is(ErrClubNotFound, ErrChallengeNotFound))
}
