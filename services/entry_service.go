package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/club-challenges/leaderboard"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
)

type EntryService interface {
	Submit(ctx context.Context, userID int, input SubmitEntryInput) (*models.ChallengeEntry, error)
	ListByChallenge(ctx context.Context, challengeID int) ([]*models.ChallengeEntry, error)
	ListByChallengeAndUser(ctx context.Context, challengeID, userID int) ([]*models.ChallengeEntry, error)
	// Update меняет счет или заметку. topScores при этом не пересчитывается.
	Update(ctx context.Context, entryID, userID int, input UpdateEntryInput) (*models.ChallengeEntry, error)
}

type SubmitEntryInput struct {
	ChallengeID int     `json:"challengeId"`
	Score       string  `json:"score"`
	Notes       *string `json:"notes"`
}

type UpdateEntryInput struct {
	Score *string `json:"score"`
	Notes *string `json:"notes"`
}

type entryService struct {
	memberRepo    repositories.MemberRepository
	challengeRepo repositories.ChallengeRepository
	entryRepo     repositories.EntryRepository
	userRepo      repositories.UserRepository
	tx            repositories.Transactor
	publisher     LeaderboardPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewEntryService(
	memberRepo repositories.MemberRepository,
	challengeRepo repositories.ChallengeRepository,
	entryRepo repositories.EntryRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	publisher LeaderboardPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) EntryService {
	return &entryService{
		memberRepo:    memberRepo,
		challengeRepo: challengeRepo,
		entryRepo:     entryRepo,
		userRepo:      userRepo,
		tx:            tx,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
	}
}

func normalizeScore(raw string) (string, error) {
	score := strings.TrimSpace(raw)
	if _, err := leaderboard.ParseScore(score); err != nil {
		return "", ErrInvalidScore
	}
	return score, nil
}

// Submit сохраняет запись и в той же транзакции вливает ее в topScores челленджа.
// Строка челленджа блокируется до вставки записи, поэтому параллельные отправки
// применяются по очереди и ни одна не теряется.
func (s *entryService) Submit(ctx context.Context, userID int, input SubmitEntryInput) (*models.ChallengeEntry, error) {
	score, err := normalizeScore(input.Score)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challengeRepo.GetByID(ctx, nil, input.ChallengeID)
	if err != nil {
		return nil, handleRepositoryError(err, ErrChallengeNotFound, "failed to get challenge %d", input.ChallengeID)
	}
	if err := requireClubMember(ctx, s.memberRepo, challenge.ClubID, userID); err != nil {
		return nil, err
	}

	entry := &models.ChallengeEntry{
		ChallengeID: input.ChallengeID,
		UserID:      userID,
		Score:       score,
		Notes:       trimOptional(input.Notes),
	}
	var (
		topScores models.TopScores
		written   bool
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		locked, err := s.challengeRepo.GetByIDForUpdate(ctx, exec, input.ChallengeID)
		if err != nil {
			return handleRepositoryError(err, ErrChallengeNotFound, "failed to lock challenge %d", input.ChallengeID)
		}

		if err := s.entryRepo.Create(ctx, exec, entry); err != nil {
			return handleRepositoryError(err, ErrChallengeNotFound, "failed to create challenge entry")
		}

		user, err := s.userRepo.GetByID(ctx, exec, userID)
		if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return fmt.Errorf("failed to load user %d: %w", userID, err)
		}

		next := leaderboard.Merge(locked.TopScores, topScoreEntry(entry, user), locked.IsHigherBetter)
		if !leaderboard.Changed(locked.TopScores, next) {
			return nil
		}
		if err := s.challengeRepo.UpdateTopScores(ctx, exec, locked.ID, next); err != nil {
			return fmt.Errorf("failed to store leaderboard of challenge %d: %w", locked.ID, err)
		}
		topScores, written = next, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if written {
		s.metrics.LeaderboardUpdate(metrics.LeaderboardWritten)
		if s.publisher != nil {
			s.publisher.PublishLeaderboard(input.ChallengeID, topScores)
		}
	} else {
		s.metrics.LeaderboardUpdate(metrics.LeaderboardSkipped)
	}

	s.logger.DebugContext(ctx, "challenge entry submitted",
		slog.Int("entry_id", entry.ID), slog.Int("challenge_id", entry.ChallengeID),
		slog.Int("user_id", userID), slog.Bool("leaderboard_changed", written))
	return entry, nil
}

func (s *entryService) ListByChallenge(ctx context.Context, challengeID int) ([]*models.ChallengeEntry, error) {
	entries, err := s.entryRepo.ListByChallenge(ctx, nil, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries of challenge %d: %w", challengeID, err)
	}
	return entries, nil
}

func (s *entryService) ListByChallengeAndUser(ctx context.Context, challengeID, userID int) ([]*models.ChallengeEntry, error) {
	entries, err := s.entryRepo.ListByChallengeAndUser(ctx, nil, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries of user %d: %w", userID, err)
	}
	return entries, nil
}

func (s *entryService) Update(ctx context.Context, entryID, userID int, input UpdateEntryInput) (*models.ChallengeEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, nil, entryID)
	if err != nil {
		return nil, handleRepositoryError(err, ErrEntryNotFound, "failed to get challenge entry %d", entryID)
	}
	if entry.UserID != userID {
		return nil, ErrNotEntryOwner
	}

	if input.Score != nil {
		score, err := normalizeScore(*input.Score)
		if err != nil {
			return nil, err
		}
		entry.Score = score
	}
	if input.Notes != nil {
		entry.Notes = trimOptional(input.Notes)
	}

	if err := s.entryRepo.Update(ctx, nil, entry); err != nil {
		return nil, handleRepositoryError(err, ErrEntryNotFound, "failed to update challenge entry %d", entryID)
	}
	return entry, nil
}
