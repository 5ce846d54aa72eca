package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/club-challenges/models"
)

func seedUser(t *testing.T, s *MemoryStore, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FirstName: "F", LastName: "L"}
	require.NoError(t, s.Users().Create(context.Background(), nil, u))
	return u
}

func TestMemoryStoreEmailUniqueIgnoresCase(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "a@example.com")

	err := s.Users().Create(context.Background(), nil, &models.User{Email: "A@Example.com"})
	assert.ErrorIs(t, err, ErrUserEmailConflict)

	u, err := s.Users().GetByEmail(context.Background(), nil, "A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
}

func TestMemoryStoreRollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := seedUser(t, s, "a@example.com")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, exec SQLExecutor) error {
		club := &models.Club{Name: "Runners"}
		if err := s.Clubs().Create(ctx, exec, club); err != nil {
			return err
		}
		if err := s.Members().Create(ctx, exec, &models.ClubMember{ClubID: club.ID, UserID: u.ID, IsAdmin: true}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	clubs, err := s.Clubs().List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, clubs)

	// Последовательности тоже откатываются.
	club := &models.Club{Name: "Swimmers"}
	require.NoError(t, s.Clubs().Create(ctx, nil, club))
	assert.Equal(t, 1, club.ID)
}

func TestMemoryStoreMemberConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := seedUser(t, s, "a@example.com")
	club := &models.Club{Name: "Runners"}
	require.NoError(t, s.Clubs().Create(ctx, nil, club))

	require.NoError(t, s.Members().Create(ctx, nil, &models.ClubMember{ClubID: club.ID, UserID: u.ID}))
	assert.ErrorIs(t, s.Members().Create(ctx, nil, &models.ClubMember{ClubID: club.ID, UserID: u.ID}), ErrMemberConflict)
	assert.ErrorIs(t, s.Members().Create(ctx, nil, &models.ClubMember{ClubID: 99, UserID: u.ID}), ErrClubNotFound)
	assert.ErrorIs(t, s.Members().Delete(ctx, nil, club.ID, 99), ErrMemberNotFound)

	members, err := s.Members().ListByClub(ctx, nil, club.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NotNil(t, members[0].User)
	assert.Equal(t, "a@example.com", members[0].User.Email)
}

func TestMemoryStoreTopScoresAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := seedUser(t, s, "a@example.com")
	club := &models.Club{Name: "Runners"}
	require.NoError(t, s.Clubs().Create(ctx, nil, club))
	ch := &models.Challenge{ClubID: club.ID, CreatedByID: u.ID, Title: "5k"}
	require.NoError(t, s.Challenges().Create(ctx, nil, ch))

	scores := models.TopScores{{UserID: u.ID, Score: "10"}}
	require.NoError(t, s.Challenges().UpdateTopScores(ctx, nil, ch.ID, scores))
	scores[0].Score = "mutated"

	got, err := s.Challenges().GetByID(ctx, nil, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.TopScores[0].Score)
}

func TestMemoryStoreUserDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	admin := seedUser(t, s, "admin@example.com")
	u := seedUser(t, s, "b@example.com")
	club := &models.Club{Name: "Runners", IsPrivate: true}
	require.NoError(t, s.Clubs().Create(ctx, nil, club))
	require.NoError(t, s.Members().Create(ctx, nil, &models.ClubMember{ClubID: club.ID, UserID: u.ID}))
	require.NoError(t, s.Invitations().Create(ctx, nil, &models.ClubInvitation{ClubID: club.ID, UserID: u.ID, InvitedBy: admin.ID}))

	require.NoError(t, s.Users().Delete(ctx, nil, u.ID))

	_, err := s.Members().Get(ctx, nil, club.ID, u.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	invs, err := s.Invitations().ListByClub(ctx, nil, club.ID)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestMemoryStoreListChallengeIDsByUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := seedUser(t, s, "a@example.com")
	other := seedUser(t, s, "b@example.com")
	club := &models.Club{Name: "Runners"}
	require.NoError(t, s.Clubs().Create(ctx, nil, club))

	var challenges []*models.Challenge
	for i := 0; i < 3; i++ {
		ch := &models.Challenge{ClubID: club.ID, Title: "c", IsHigherBetter: true}
		require.NoError(t, s.Challenges().Create(ctx, nil, ch))
		challenges = append(challenges, ch)
	}
	for _, e := range []*models.ChallengeEntry{
		{ChallengeID: challenges[2].ID, UserID: u.ID, Score: "1"},
		{ChallengeID: challenges[0].ID, UserID: u.ID, Score: "2"},
		{ChallengeID: challenges[2].ID, UserID: u.ID, Score: "3"},
		{ChallengeID: challenges[1].ID, UserID: other.ID, Score: "4"},
	} {
		require.NoError(t, s.Entries().Create(ctx, nil, e))
	}

	ids, err := s.Entries().ListChallengeIDsByUser(ctx, nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{challenges[0].ID, challenges[2].ID}, ids)

	ids, err = s.Entries().ListChallengeIDsByUser(ctx, nil, 999)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
