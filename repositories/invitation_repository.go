package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/club-challenges/models"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationConflict = errors.New("invitation already exists")
)

type InvitationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, inv *models.ClubInvitation) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ClubInvitation, error)
	GetByClubAndUser(ctx context.Context, exec SQLExecutor, clubID, userID int) (*models.ClubInvitation, error)
	ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.ClubInvitation, error)
	ListPendingByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.ClubInvitation, error)
	MarkAccepted(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
}

type postgresInvitationRepository struct {
	db *sql.DB
}

func NewPostgresInvitationRepository(db *sql.DB) InvitationRepository {
	return &postgresInvitationRepository{db: db}
}

const invitationColumns = `id, club_id, user_id, invited_by, invited_at, accepted, accepted_at`

func (r *postgresInvitationRepository) Create(ctx context.Context, exec SQLExecutor, inv *models.ClubInvitation) error {
	query := `
		INSERT INTO club_invitations (club_id, user_id, invited_by)
		VALUES ($1, $2, $3)
		RETURNING id, invited_at, accepted`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query, inv.ClubID, inv.UserID, inv.InvitedBy).
		Scan(&inv.ID, &inv.InvitedAt, &inv.Accepted)
	if err != nil {
		if isViolation(err, pqUniqueViolation, "club_invitations_club_id_user_id_key") {
			return ErrInvitationConflict
		}
		if isViolation(err, pqForeignKeyViolation, "club_invitations_club_id_fkey") {
			return ErrClubNotFound
		}
		if isViolation(err, pqForeignKeyViolation, "club_invitations_user_id_fkey") {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *postgresInvitationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ClubInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM club_invitations WHERE id = $1`
	return r.getOne(ctx, exec, query, id)
}

func (r *postgresInvitationRepository) GetByClubAndUser(ctx context.Context, exec SQLExecutor, clubID, userID int) (*models.ClubInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM club_invitations WHERE club_id = $1 AND user_id = $2`
	return r.getOne(ctx, exec, query, clubID, userID)
}

func (r *postgresInvitationRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.ClubInvitation, error) {
	inv, err := scanInvitation(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func (r *postgresInvitationRepository) ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.ClubInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM club_invitations WHERE club_id = $1 ORDER BY invited_at ASC, id ASC`
	return r.list(ctx, exec, query, clubID)
}

func (r *postgresInvitationRepository) ListPendingByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.ClubInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM club_invitations WHERE user_id = $1 AND accepted = FALSE ORDER BY invited_at ASC, id ASC`
	return r.list(ctx, exec, query, userID)
}

func (r *postgresInvitationRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.ClubInvitation, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]*models.ClubInvitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invitations, nil
}

// MarkAccepted only touches pending invitations; an already accepted one reports not found.
func (r *postgresInvitationRepository) MarkAccepted(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	result, err := getExecutor(r.db, exec).ExecContext(ctx,
		`UPDATE club_invitations SET accepted = TRUE, accepted_at = $1 WHERE id = $2 AND accepted = FALSE`, at, id)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	return checkRowsAffected(result, ErrInvitationNotFound)
}

func scanInvitation(row rowScanner) (*models.ClubInvitation, error) {
	inv := &models.ClubInvitation{}
	err := row.Scan(&inv.ID, &inv.ClubID, &inv.UserID, &inv.InvitedBy, &inv.InvitedAt, &inv.Accepted, &inv.AcceptedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
