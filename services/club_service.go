package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
	"github.com/Dosada05/club-challenges/storage"
)

const clubImageFolder = "clubs"

type ClubService interface {
	Create(ctx context.Context, creatorID int, input CreateClubInput) (*models.Club, error)
	GetByID(ctx context.Context, id int) (*models.Club, error)
	List(ctx context.Context) ([]*models.Club, error)
	ListForUser(ctx context.Context, userID int) ([]*models.Club, error)
	UploadImage(ctx context.Context, clubID, userID int, kind models.ClubImageKind, file io.Reader, contentType string) (*models.Club, error)
}

type CreateClubInput struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	IsPrivate     bool    `json:"isPrivate"`
	LogoURL       *string `json:"logoUrl"`
	CoverImageURL *string `json:"coverImageUrl"`
}

type clubService struct {
	clubRepo   repositories.ClubRepository
	memberRepo repositories.MemberRepository
	tx         repositories.Transactor
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewClubService(
	clubRepo repositories.ClubRepository,
	memberRepo repositories.MemberRepository,
	tx repositories.Transactor,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ClubService {
	return &clubService{
		clubRepo:   clubRepo,
		memberRepo: memberRepo,
		tx:         tx,
		uploader:   uploader,
		logger:     logger,
	}
}

// Create создает клуб и членство создателя с правами админа в одной транзакции.
func (s *clubService) Create(ctx context.Context, creatorID int, input CreateClubInput) (*models.Club, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ValidationError("club name is required")
	}

	club := &models.Club{
		Name:          name,
		Description:   trimOptional(input.Description),
		IsPrivate:     input.IsPrivate,
		LogoURL:       trimOptional(input.LogoURL),
		CoverImageURL: trimOptional(input.CoverImageURL),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		if err := s.clubRepo.Create(ctx, exec, club); err != nil {
			return err
		}
		admin := &models.ClubMember{ClubID: club.ID, UserID: creatorID, IsAdmin: true}
		if err := s.memberRepo.Create(ctx, exec, admin); err != nil {
			return fmt.Errorf("failed to add club creator as admin: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create club: %w", err)
	}

	s.logger.InfoContext(ctx, "club created", slog.Int("club_id", club.ID), slog.Int("creator_id", creatorID))
	return club, nil
}

func (s *clubService) GetByID(ctx context.Context, id int) (*models.Club, error) {
	club, err := s.clubRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", id)
	}
	return club, nil
}

func (s *clubService) List(ctx context.Context) ([]*models.Club, error) {
	clubs, err := s.clubRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	return clubs, nil
}

func (s *clubService) ListForUser(ctx context.Context, userID int) ([]*models.Club, error) {
	clubs, err := s.clubRepo.ListByMember(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs of user %d: %w", userID, err)
	}
	return clubs, nil
}

func (s *clubService) UploadImage(ctx context.Context, clubID, userID int, kind models.ClubImageKind, file io.Reader, contentType string) (*models.Club, error) {
	if !kind.Valid() {
		return nil, ValidationError("image kind must be logo or cover")
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := storage.ImageExtension(contentType)
	if err != nil {
		return nil, ErrInvalidImage
	}

	club, err := s.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if err := requireClubAdmin(ctx, s.memberRepo, clubID, userID); err != nil {
		return nil, err
	}

	key := storage.ObjectKey(fmt.Sprintf("%s/%s", clubImageFolder, kind), clubID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload club %s: %w", kind, err)
	}

	if err := s.clubRepo.UpdateImage(ctx, nil, clubID, kind, result.Location); err != nil {
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned club image", slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to save club %d image", clubID)
	}

	var previous *string
	if kind == models.ClubImageLogo {
		previous, club.LogoURL = club.LogoURL, &result.Location
	} else {
		previous, club.CoverImageURL = club.CoverImageURL, &result.Location
	}
	if previous != nil {
		deleteStoredImage(ctx, s.uploader, s.logger, *previous)
	}
	return club, nil
}
