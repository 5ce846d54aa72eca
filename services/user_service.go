package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
	"github.com/Dosada05/club-challenges/storage"
)

const avatarFolder = "avatars"

type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID int, file io.Reader, contentType string) (*models.User, error)
	Delete(ctx context.Context, id int) error
}

type UpdateProfileInput struct {
	FirstName         *string `json:"firstName"`
	LastName          *string `json:"lastName"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

type userService struct {
	userRepo      repositories.UserRepository
	challengeRepo repositories.ChallengeRepository
	entryRepo     repositories.EntryRepository
	tx            repositories.Transactor
	uploader      storage.FileUploader
	publisher     LeaderboardPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewUserService принимает uploader == nil, если хранилище изображений не настроено.
func NewUserService(
	userRepo repositories.UserRepository,
	challengeRepo repositories.ChallengeRepository,
	entryRepo repositories.EntryRepository,
	tx repositories.Transactor,
	uploader storage.FileUploader,
	publisher LeaderboardPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:      userRepo,
		challengeRepo: challengeRepo,
		entryRepo:     entryRepo,
		tx:            tx,
		uploader:      uploader,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
	}
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, ErrUserNotFound, "failed to get user %d", id)
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ValidationError("email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, handleRepositoryError(err, ErrUserNotFound, "failed to get user by email")
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, ValidationError("first name cannot be empty")
		}
		user.FirstName = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return nil, ValidationError("last name cannot be empty")
		}
		user.LastName = name
	}
	if input.ProfilePictureURL != nil {
		user.ProfilePictureURL = trimOptional(input.ProfilePictureURL)
	}

	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, handleRepositoryError(err, ErrUserNotFound, "failed to update user %d", userID)
	}
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, file io.Reader, contentType string) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := storage.ImageExtension(contentType)
	if err != nil {
		return nil, ErrInvalidImage
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.uploader.Upload(ctx, storage.ObjectKey(avatarFolder, userID, ext), contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	previous := user.ProfilePictureURL
	user.ProfilePictureURL = &result.Location
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		// Загруженный файл больше никому не нужен
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned avatar", slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err, ErrUserNotFound, "failed to save avatar of user %d", userID)
	}

	if previous != nil {
		deleteStoredImage(ctx, s.uploader, s.logger, *previous)
	}
	return user, nil
}

// Delete - административная операция (clubctl delete-user).
// Таблицы лидеров челленджей с записями пользователя пересчитываются в той же транзакции.
func (s *userService) Delete(ctx context.Context, id int) error {
	var changed []*models.Challenge
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		challengeIDs, err := s.entryRepo.ListChallengeIDsByUser(ctx, exec, id)
		if err != nil {
			return err
		}
		// Челленджи блокируются до удаления записей, по возрастанию id.
		locked := make([]*models.Challenge, 0, len(challengeIDs))
		for _, challengeID := range challengeIDs {
			ch, err := s.challengeRepo.GetByIDForUpdate(ctx, exec, challengeID)
			if err != nil {
				return fmt.Errorf("failed to lock challenge %d: %w", challengeID, err)
			}
			locked = append(locked, ch)
		}

		if err := s.userRepo.Delete(ctx, exec, id); err != nil {
			return err
		}

		rebuilder := leaderboardRebuilder{challengeRepo: s.challengeRepo, entryRepo: s.entryRepo}
		for _, ch := range locked {
			written, err := rebuilder.apply(ctx, exec, ch)
			if err != nil {
				return err
			}
			if written {
				changed = append(changed, ch)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}

	for _, ch := range changed {
		s.metrics.LeaderboardUpdate(metrics.LeaderboardRebuilt)
		if s.publisher != nil {
			s.publisher.PublishLeaderboard(ch.ID, ch.TopScores)
		}
	}
	s.logger.InfoContext(ctx, "user deleted", slog.Int("user_id", id), slog.Int("leaderboards_rebuilt", len(changed)))
	return nil
}
