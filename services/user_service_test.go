package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/repositories"
)

func TestUserServiceDeleteRebuildsLeaderboards(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "a@example.com", "Ann", "Admin")
	b := f.register(t, "b@example.com", "Bob", "B")
	d := f.register(t, "d@example.com", "Dan", "D")
	club := f.createClub(t, a, "C", false)
	f.join(t, club, b)
	f.join(t, club, d)

	shared := f.createChallenge(t, club, a, true)
	onlyB := f.createChallenge(t, club, a, true)
	withoutB := f.createChallenge(t, club, a, true)

	f.submit(t, shared, b, "10")
	f.submit(t, shared, d, "20")
	f.submit(t, onlyB, b, "7")
	f.submit(t, withoutB, d, "3")
	require.Equal(t, []int{d.ID, b.ID}, userIDs(f.topScores(t, shared)))
	untouched := f.topScores(t, withoutB)
	published := f.publisher.count(withoutB.ID)

	require.NoError(t, f.svc.Users.Delete(f.ctx, b.ID))

	top := f.topScores(t, shared)
	assert.Equal(t, []int{d.ID}, userIDs(top))
	assert.Equal(t, []string{"20"}, scoreValues(top))
	assert.Empty(t, f.topScores(t, onlyB))
	assert.Equal(t, untouched, f.topScores(t, withoutB))

	assert.Equal(t, 3, f.publisher.count(shared.ID))
	assert.Equal(t, 2, f.publisher.count(onlyB.ID))
	assert.Equal(t, published, f.publisher.count(withoutB.ID))
	assert.Equal(t, float64(2), f.leaderboardUpdates(t, metrics.LeaderboardRebuilt))

	entries, err := f.svc.Entries.ListByChallenge(f.ctx, shared.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, d.ID, entries[0].UserID)
}

func TestUserServiceDeleteRollsBackOnLeaderboardFailure(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "a@example.com", "Ann", "Admin")
	b := f.register(t, "b@example.com", "Bob", "B")
	club := f.createClub(t, a, "C", false)
	f.join(t, club, b)
	ch := f.createChallenge(t, club, a, true)
	f.submit(t, ch, b, "10")
	before := f.topScores(t, ch)
	published := f.publisher.count(ch.ID)

	f.store.FailOn(repositories.FaultUpdateTopScores, errors.New("write failed"))
	err := f.svc.Users.Delete(f.ctx, b.ID)
	require.Error(t, err)

	_, err = f.svc.Users.GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, before, f.topScores(t, ch))
	assert.Equal(t, published, f.publisher.count(ch.ID))
}

func TestUserServiceDeleteUnknownUser(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Users.Delete(f.ctx, 404), ErrUserNotFound)
}
