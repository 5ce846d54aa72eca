package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
	"github.com/Dosada05/club-challenges/storage"
)

var timeNow = time.Now

// handleRepositoryError переводит ошибку "не найдено" репозитория в доменную.
func handleRepositoryError(err error, notFound error, format string, args ...interface{}) error {
	if errors.Is(err, repositories.ErrUserNotFound) ||
		errors.Is(err, repositories.ErrClubNotFound) ||
		errors.Is(err, repositories.ErrChallengeNotFound) ||
		errors.Is(err, repositories.ErrEntryNotFound) ||
		errors.Is(err, repositories.ErrInvitationNotFound) ||
		errors.Is(err, repositories.ErrMemberNotFound) {
		return notFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// membershipOf возвращает членство пользователя в клубе или nil, если его нет.
func membershipOf(ctx context.Context, members repositories.MemberRepository, exec repositories.SQLExecutor, clubID, userID int) (*models.ClubMember, error) {
	m, err := members.Get(ctx, exec, clubID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check membership of user %d in club %d: %w", userID, clubID, err)
	}
	return m, nil
}

func requireClubAdmin(ctx context.Context, members repositories.MemberRepository, clubID, userID int) error {
	m, err := membershipOf(ctx, members, nil, clubID, userID)
	if err != nil {
		return err
	}
	if m == nil || !m.IsAdmin {
		return ErrNotClubAdmin
	}
	return nil
}

func requireClubMember(ctx context.Context, members repositories.MemberRepository, clubID, userID int) error {
	m, err := membershipOf(ctx, members, nil, clubID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotClubMember
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ValidationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return ErrInvalidEmail
	}
	return nil
}

// trimOptional обрезает пробелы; пустая строка превращается в nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// deleteStoredImage удаляет старое изображение, если оно лежит в нашем хранилище.
func deleteStoredImage(ctx context.Context, uploader storage.FileUploader, logger *slog.Logger, url string) {
	key := uploader.KeyFromURL(url)
	if key == "" {
		return
	}
	if err := uploader.Delete(ctx, key); err != nil {
		logger.WarnContext(ctx, "failed to delete previous image", slog.String("key", key), slog.Any("error", err))
	}
}
