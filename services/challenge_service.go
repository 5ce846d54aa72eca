package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/club-challenges/leaderboard"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
)

// rebuildConcurrency ограничивает число параллельных пересчетов.
const rebuildConcurrency = 4

// LeaderboardPublisher получает таблицу лидеров после каждой зафиксированной записи.
type LeaderboardPublisher interface {
	PublishLeaderboard(challengeID int, topScores models.TopScores)
}

type ChallengeService interface {
	Create(ctx context.Context, creatorID int, input CreateChallengeInput) (*models.Challenge, error)
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	ListByClub(ctx context.Context, clubID int) ([]*models.Challenge, error)
	UpdateStatus(ctx context.Context, id, userID int, status models.ChallengeStatus) (*models.Challenge, error)
	// RebuildLeaderboard пересчитывает topScores по всем записям челленджа (только админ клуба).
	RebuildLeaderboard(ctx context.Context, id, userID int) (*models.Challenge, error)
	RebuildClubLeaderboards(ctx context.Context, clubID, userID int) (int, error)
	// RebuildAllLeaderboards - административная операция без проверки прав (clubctl).
	RebuildAllLeaderboards(ctx context.Context) (int, error)
}

type CreateChallengeInput struct {
	ClubID         int                      `json:"clubId"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description"`
	Duration       models.ChallengeDuration `json:"duration"`
	Status         models.ChallengeStatus   `json:"status"`
	StartDate      time.Time                `json:"startDate"`
	EndDate        time.Time                `json:"endDate"`
	ScoreType      string                   `json:"scoreType"`
	ScoreUnit      *string                  `json:"scoreUnit"`
	IsHigherBetter *bool                    `json:"isHigherBetter"`
}

type challengeService struct {
	clubRepo      repositories.ClubRepository
	memberRepo    repositories.MemberRepository
	challengeRepo repositories.ChallengeRepository
	entryRepo     repositories.EntryRepository
	tx            repositories.Transactor
	publisher     LeaderboardPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewChallengeService(
	clubRepo repositories.ClubRepository,
	memberRepo repositories.MemberRepository,
	challengeRepo repositories.ChallengeRepository,
	entryRepo repositories.EntryRepository,
	tx repositories.Transactor,
	publisher LeaderboardPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) ChallengeService {
	return &challengeService{
		clubRepo:      clubRepo,
		memberRepo:    memberRepo,
		challengeRepo: challengeRepo,
		entryRepo:     entryRepo,
		tx:            tx,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
	}
}

func (in *CreateChallengeInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ScoreType = strings.TrimSpace(in.ScoreType)
	in.ScoreUnit = trimOptional(in.ScoreUnit)
	if in.Status == "" {
		in.Status = models.ChallengeStatusActive
	}
	if in.IsHigherBetter == nil {
		higher := true
		in.IsHigherBetter = &higher
	}

	switch {
	case in.Title == "":
		return ValidationError("title is required")
	case in.Description == "":
		return ValidationError("description is required")
	case in.ScoreType == "":
		return ValidationError("score type is required")
	case !in.Duration.Valid():
		return ValidationError("duration must be one of daily, weekly, monthly")
	case !in.Status.Valid():
		return ValidationError("status must be one of active, completed, archived")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return ValidationError("start date and end date are required")
	case in.EndDate.Before(in.StartDate):
		return ValidationError("end date must not be before start date")
	}
	return nil
}

func (s *challengeService) Create(ctx context.Context, creatorID int, input CreateChallengeInput) (*models.Challenge, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.clubRepo.GetByID(ctx, nil, input.ClubID); err != nil {
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", input.ClubID)
	}
	if err := requireClubAdmin(ctx, s.memberRepo, input.ClubID, creatorID); err != nil {
		return nil, err
	}

	ch := &models.Challenge{
		ClubID:         input.ClubID,
		Title:          input.Title,
		Description:    input.Description,
		Duration:       input.Duration,
		Status:         input.Status,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		CreatedByID:    creatorID,
		ScoreType:      input.ScoreType,
		ScoreUnit:      input.ScoreUnit,
		IsHigherBetter: *input.IsHigherBetter,
		TopScores:      models.TopScores{},
	}
	if err := s.challengeRepo.Create(ctx, nil, ch); err != nil {
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to create challenge")
	}

	s.logger.InfoContext(ctx, "challenge created", slog.Int("challenge_id", ch.ID), slog.Int("club_id", ch.ClubID))
	return ch, nil
}

func (s *challengeService) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	ch, err := s.challengeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, ErrChallengeNotFound, "failed to get challenge %d", id)
	}
	return ch, nil
}

func (s *challengeService) ListByClub(ctx context.Context, clubID int) ([]*models.Challenge, error) {
	challenges, err := s.challengeRepo.ListByClub(ctx, nil, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges of club %d: %w", clubID, err)
	}
	return challenges, nil
}

func (s *challengeService) UpdateStatus(ctx context.Context, id, userID int, status models.ChallengeStatus) (*models.Challenge, error) {
	if !status.Valid() {
		return nil, ValidationError("status must be one of active, completed, archived")
	}
	ch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireClubAdmin(ctx, s.memberRepo, ch.ClubID, userID); err != nil {
		return nil, err
	}

	if err := s.challengeRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, handleRepositoryError(err, ErrChallengeNotFound, "failed to update challenge %d status", id)
	}
	s.logger.InfoContext(ctx, "challenge status updated",
		slog.Int("challenge_id", id), slog.String("status", string(status)), slog.Int("user_id", userID))
	return s.GetByID(ctx, id)
}

func (s *challengeService) RebuildLeaderboard(ctx context.Context, id, userID int) (*models.Challenge, error) {
	ch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireClubAdmin(ctx, s.memberRepo, ch.ClubID, userID); err != nil {
		return nil, err
	}
	return s.rebuild(ctx, id)
}

func (s *challengeService) RebuildClubLeaderboards(ctx context.Context, clubID, userID int) (int, error) {
	if _, err := s.clubRepo.GetByID(ctx, nil, clubID); err != nil {
		return 0, handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", clubID)
	}
	if err := requireClubAdmin(ctx, s.memberRepo, clubID, userID); err != nil {
		return 0, err
	}
	challenges, err := s.ListByClub(ctx, clubID)
	if err != nil {
		return 0, err
	}
	return s.rebuildMany(ctx, challenges)
}

func (s *challengeService) RebuildAllLeaderboards(ctx context.Context) (int, error) {
	challenges, err := s.challengeRepo.ListAll(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list challenges: %w", err)
	}
	return s.rebuildMany(ctx, challenges)
}

func (s *challengeService) rebuildMany(ctx context.Context, challenges []*models.Challenge) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	for _, ch := range challenges {
		id := ch.ID
		g.Go(func() error {
			_, err := s.rebuild(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(challenges), nil
}

// rebuild заново собирает topScores из всех записей под блокировкой строки челленджа.
func (s *challengeService) rebuild(ctx context.Context, id int) (*models.Challenge, error) {
	var (
		ch      *models.Challenge
		written bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		ch, err = s.challengeRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err, ErrChallengeNotFound, "failed to lock challenge %d", id)
		}
		written, err = s.rebuilder().apply(ctx, exec, ch)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !written {
		return ch, nil
	}

	s.metrics.LeaderboardUpdate(metrics.LeaderboardRebuilt)
	s.logger.InfoContext(ctx, "leaderboard rebuilt", slog.Int("challenge_id", id), slog.Int("entries", len(ch.TopScores)))
	if s.publisher != nil {
		s.publisher.PublishLeaderboard(id, ch.TopScores)
	}
	return s.GetByID(ctx, id)
}

func (s *challengeService) rebuilder() leaderboardRebuilder {
	return leaderboardRebuilder{challengeRepo: s.challengeRepo, entryRepo: s.entryRepo}
}

// leaderboardRebuilder пересчитывает topScores внутри уже открытой транзакции.
type leaderboardRebuilder struct {
	challengeRepo repositories.ChallengeRepository
	entryRepo     repositories.EntryRepository
}

// apply requires ch to be locked by GetByIDForUpdate on exec. It reports whether
// topScores changed and was written; ch.TopScores then holds the new list.
func (r leaderboardRebuilder) apply(ctx context.Context, exec repositories.SQLExecutor, ch *models.Challenge) (bool, error) {
	candidates, err := r.entryRepo.ListLeaderboardCandidates(ctx, exec, ch.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load entries of challenge %d: %w", ch.ID, err)
	}
	all := make([]models.TopScoreEntry, 0, len(candidates))
	for _, c := range candidates {
		all = append(all, topScoreEntry(c.Entry, c.User))
	}

	next := leaderboard.Rebuild(all, ch.IsHigherBetter)
	if !leaderboard.Changed(ch.TopScores, next) {
		return false, nil
	}
	if err := r.challengeRepo.UpdateTopScores(ctx, exec, ch.ID, next); err != nil {
		return false, fmt.Errorf("failed to store leaderboard of challenge %d: %w", ch.ID, err)
	}
	ch.TopScores = next
	return true, nil
}

func topScoreEntry(entry *models.ChallengeEntry, user *models.User) models.TopScoreEntry {
	return models.TopScoreEntry{
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		UserName:   user.DisplayName(),
		Score:      entry.Score,
		AchievedAt: entry.CreatedAt,
	}
}
