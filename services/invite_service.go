package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
)

type InvitationService interface {
	Invite(ctx context.Context, clubID, targetUserID, inviterID int) (*models.ClubInvitation, error)
	ListClubInvitations(ctx context.Context, clubID, userID int) ([]*models.ClubInvitation, error)
	ListMyInvitations(ctx context.Context, userID int) ([]*models.ClubInvitation, error)
	Accept(ctx context.Context, invitationID, userID int) (*models.ClubMember, error)
}

type invitationService struct {
	clubRepo       repositories.ClubRepository
	memberRepo     repositories.MemberRepository
	invitationRepo repositories.InvitationRepository
	userRepo       repositories.UserRepository
	tx             repositories.Transactor
	logger         *slog.Logger
}

func NewInvitationService(
	clubRepo repositories.ClubRepository,
	memberRepo repositories.MemberRepository,
	invitationRepo repositories.InvitationRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) InvitationService {
	return &invitationService{
		clubRepo:       clubRepo,
		memberRepo:     memberRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		tx:             tx,
		logger:         logger,
	}
}

// Invite: только админ закрытого клуба; одно приглашение на пару (клуб, пользователь).
func (s *invitationService) Invite(ctx context.Context, clubID, targetUserID, inviterID int) (*models.ClubInvitation, error) {
	club, err := s.clubRepo.GetByID(ctx, nil, clubID)
	if err != nil {
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", clubID)
	}
	if err := requireClubAdmin(ctx, s.memberRepo, clubID, inviterID); err != nil {
		return nil, err
	}
	if !club.IsPrivate {
		return nil, ErrInviteToPublicClub
	}
	if _, err := s.userRepo.GetByID(ctx, nil, targetUserID); err != nil {
		return nil, handleRepositoryError(err, ErrUserNotFound, "failed to get user %d", targetUserID)
	}

	inv := &models.ClubInvitation{ClubID: clubID, UserID: targetUserID, InvitedBy: inviterID}
	if err := s.invitationRepo.Create(ctx, nil, inv); err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvitationConflict):
			return nil, ErrInvitationConflict
		case errors.Is(err, repositories.ErrClubNotFound):
			return nil, ErrClubNotFound
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.logger.InfoContext(ctx, "user invited to club",
		slog.Int("club_id", clubID), slog.Int("user_id", targetUserID), slog.Int("invited_by", inviterID))
	return inv, nil
}

func (s *invitationService) ListClubInvitations(ctx context.Context, clubID, userID int) ([]*models.ClubInvitation, error) {
	if _, err := s.clubRepo.GetByID(ctx, nil, clubID); err != nil {
		return nil, handleRepositoryError(err, ErrClubNotFound, "failed to get club %d", clubID)
	}
	if err := requireClubAdmin(ctx, s.memberRepo, clubID, userID); err != nil {
		return nil, err
	}
	invitations, err := s.invitationRepo.ListByClub(ctx, nil, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations of club %d: %w", clubID, err)
	}
	return invitations, nil
}

// ListMyInvitations возвращает только непринятые приглашения.
func (s *invitationService) ListMyInvitations(ctx context.Context, userID int) ([]*models.ClubInvitation, error) {
	invitations, err := s.invitationRepo.ListPendingByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations of user %d: %w", userID, err)
	}
	return invitations, nil
}

func (s *invitationService) Accept(ctx context.Context, invitationID, userID int) (*models.ClubMember, error) {
	var member *models.ClubMember

	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		inv, err := s.invitationRepo.GetByID(ctx, exec, invitationID)
		if err != nil {
			return handleRepositoryError(err, ErrInvitationNotFound, "failed to get invitation %d", invitationID)
		}
		if inv.UserID != userID {
			return ErrInvitationNotYours
		}
		if inv.Accepted {
			return ErrInvitationAlreadyAccepted
		}

		if err := s.invitationRepo.MarkAccepted(ctx, exec, inv.ID, timeNow()); err != nil {
			if errors.Is(err, repositories.ErrInvitationNotFound) {
				return ErrInvitationAlreadyAccepted
			}
			return fmt.Errorf("failed to accept invitation %d: %w", inv.ID, err)
		}

		member = &models.ClubMember{ClubID: inv.ClubID, UserID: userID, IsAdmin: false}
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

	s.logger.InfoContext(ctx, "invitation accepted", slog.Int("invitation_id", invitationID), slog.Int("user_id", userID))
	return member, nil
}
