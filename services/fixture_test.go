package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
)

const testPassword = "password123"

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// stepClock выдает время, растущее на секунду при каждом вызове.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates map[int][]models.TopScores
}

func (p *recordingPublisher) PublishLeaderboard(challengeID int, topScores models.TopScores) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updates == nil {
		p.updates = map[int][]models.TopScores{}
	}
	p.updates[challengeID] = append(p.updates[challengeID], topScores.Clone())
}

func (p *recordingPublisher) count(challengeID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates[challengeID])
}

type fixture struct {
	ctx       context.Context
	store     *repositories.MemoryStore
	svc       *Services
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	clock := &stepClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)

	publisher := &recordingPublisher{}
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(Dependencies{
		Store:     store.Store(),
		Tokens:    auth.NewTokenManager("test-secret", time.Hour),
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})
	return &fixture{
		ctx:       context.Background(),
		store:     store,
		svc:       svc,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (f *fixture) register(t *testing.T, email, firstName, lastName string) *models.User {
	t.Helper()
	res, err := f.svc.Auth.Register(f.ctx, RegisterInput{
		Email:     email,
		Password:  testPassword,
		FirstName: firstName,
		LastName:  lastName,
	})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) createClub(t *testing.T, creator *models.User, name string, private bool) *models.Club {
	t.Helper()
	club, err := f.svc.Clubs.Create(f.ctx, creator.ID, CreateClubInput{Name: name, IsPrivate: private})
	require.NoError(t, err)
	return club
}

func (f *fixture) join(t *testing.T, club *models.Club, user *models.User) {
	t.Helper()
	_, err := f.svc.Memberships.Join(f.ctx, club.ID, user.ID)
	require.NoError(t, err)
}

func (f *fixture) createChallenge(t *testing.T, club *models.Club, admin *models.User, higherIsBetter bool) *models.Challenge {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ch, err := f.svc.Challenges.Create(f.ctx, admin.ID, CreateChallengeInput{
		ClubID:         club.ID,
		Title:          "Plank",
		Description:    "Hold the plank",
		Duration:       models.DurationWeekly,
		StartDate:      start,
		EndDate:        start.Add(7 * 24 * time.Hour),
		ScoreType:      "time",
		IsHigherBetter: &higherIsBetter,
	})
	require.NoError(t, err)
	return ch
}

func (f *fixture) submit(t *testing.T, ch *models.Challenge, user *models.User, score string) *models.ChallengeEntry {
	t.Helper()
	entry, err := f.svc.Entries.Submit(f.ctx, user.ID, SubmitEntryInput{ChallengeID: ch.ID, Score: score})
	require.NoError(t, err)
	return entry
}

func (f *fixture) topScores(t *testing.T, ch *models.Challenge) models.TopScores {
	t.Helper()
	got, err := f.svc.Challenges.GetByID(f.ctx, ch.ID)
	require.NoError(t, err)
	return got.TopScores
}

// leaderboardUpdates читает счетчик club_challenges_leaderboard_updates_total для outcome.
func (f *fixture) leaderboardUpdates(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := f.metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "club_challenges_leaderboard_updates_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
