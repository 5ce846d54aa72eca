package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
)

type MembershipService interface {
	Join(ctx context.Context, clubID, userID int) (*models.ClubMember, error)
	Leave(ctx context.Context, clubID, userID int) error
	ListMembers(ctx context.Context, clubID int) ([]*models.ClubMember, error)
}

type membershipService struct {
	clubRepo       repositories.ClubRepository
	memberRepo     repositories.MemberRepository
	invitationRepo repositories.InvitationRepository
	tx             repositories.Transactor
	logger         *slog.Logger
}

func NewMembershipService(
	clubRepo repositories.ClubRepository,
	memberRepo repositories.MemberRepository,
	invitationRepo repositories.InvitationRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) MembershipService {
	return &membershipService{
		clubRepo:       clubRepo,
		memberRepo:     memberRepo,
		invitationRepo: invitationRepo,
		tx:             tx,
		logger:         logger,
	}
}

// Join: в открытый клуб вступает любой; в закрытый только по приглашению,
// которое при этом отмечается принятым.
func (s *membershipService) Join(ctx context.Context, clubID, userID int) (*models.ClubMember, error) {
	member := &models.ClubMember{ClubID: clubID, UserID: userID, IsAdmin: false}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		club, err := s.clubRepo.GetByID(ctx, exec, clubID)
		if err != nil {
			return handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", clubID)
		}

		existing, err := membershipOf(ctx, s.memberRepo, exec, clubID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyMember
		}

		if club.IsPrivate {
			inv, err := s.invitationRepo.GetByClubAndUser(ctx, exec, clubID, userID)
			if err != nil {
				return handleRepositoryError(err, ErrInvitationRequired, "failed to check invitation")
			}
			if !inv.Accepted {
				if err := s.invitationRepo.MarkAccepted(ctx, exec, inv.ID, timeNow()); err != nil {
					return fmt.Errorf("failed to accept invitation %d: %w", inv.ID, err)
				}
			}
		}

		if err := s.memberRepo.Create(ctx, exec, member); err != nil {
			if errors.Is(err, repositories.ErrMemberConflict) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("failed to create membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user joined club", slog.Int("club_id", clubID), slog.Int("user_id", userID))
	return member, nil
}

// Leave не защищает от выхода последнего админа.
func (s *membershipService) Leave(ctx context.Context, clubID, userID int) error {
	if _, err := s.clubRepo.GetByID(ctx, nil, clubID); err != nil {
		return handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", clubID)
	}
	if err := s.memberRepo.Delete(ctx, nil, clubID, userID); err != nil {
		return handleRepositoryError(err, ErrNotClubMember, "failed to leave club %d", clubID)
	}
	s.logger.InfoContext(ctx, "user left club", slog.Int("club_id", clubID), slog.Int("user_id", userID))
	return nil
}

func (s *membershipService) ListMembers(ctx context.Context, clubID int) ([]*models.ClubMember, error) {
	if _, err := s.clubRepo.GetByID(ctx, nil, clubID); err != nil {
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", clubID)
	}
	members, err := s.memberRepo.ListByClub(ctx, nil, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of club %d: %w", clubID, err)
	}
	return members, nil
}
