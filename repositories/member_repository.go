package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/club-challenges/models"
)

var (
	ErrMemberNotFound = errors.New("club member not found")
	ErrMemberConflict = errors.New("user is already a member of this club")
)

type MemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.ClubMember) error
	Get(ctx context.Context, exec SQLExecutor, clubID, userID int) (*models.ClubMember, error)
	ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.ClubMember, error)
	Delete(ctx context.Context, exec SQLExecutor, clubID, userID int) error
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) Create(ctx context.Context, exec SQLExecutor, member *models.ClubMember) error {
	query := `
		INSERT INTO club_members (club_id, user_id, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		member.ClubID,
		member.UserID,
		member.IsAdmin,
	).Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		// Маппинг нарушений ограничений на ошибки репозитория
		if isViolation(err, pqUniqueViolation, "club_members_club_id_user_id_key") {
			return ErrMemberConflict
		}
		if isViolation(err, pqForeignKeyViolation, "club_members_club_id_fkey") {
			return ErrClubNotFound
		}
		if isViolation(err, pqForeignKeyViolation, "club_members_user_id_fkey") {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create club member: %w", err)
	}
	return nil
}

func (r *postgresMemberRepository) Get(ctx context.Context, exec SQLExecutor, clubID, userID int) (*models.ClubMember, error) {
	query := `
		SELECT id, club_id, user_id, is_admin, joined_at
		FROM club_members
		WHERE club_id = $1 AND user_id = $2`

	m := &models.ClubMember{}
	err := getExecutor(r.db, exec).QueryRowContext(ctx, query, clubID, userID).
		Scan(&m.ID, &m.ClubID, &m.UserID, &m.IsAdmin, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get club member: %w", err)
	}
	return m, nil
}

// ListByClub returns the members of a club with their user profile attached.
func (r *postgresMemberRepository) ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.ClubMember, error) {
	query := `
		SELECT
			m.id, m.club_id, m.user_id, m.is_admin, m.joined_at,
			u.id, u.email, u.password_hash, u.first_name, u.last_name, u.profile_picture_url, u.created_at, u.updated_at
		FROM club_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.club_id = $1
		ORDER BY m.joined_at ASC, m.id ASC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list club members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.ClubMember, 0)
	for rows.Next() {
		m := &models.ClubMember{}
		u := &models.User{}
		err := rows.Scan(
			&m.ID, &m.ClubID, &m.UserID, &m.IsAdmin, &m.JoinedAt,
			&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.ProfilePictureURL, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan club member: %w", err)
		}
		m.User = u
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresMemberRepository) Delete(ctx context.Context, exec SQLExecutor, clubID, userID int) error {
	result, err := getExecutor(r.db, exec).ExecContext(ctx,
		`DELETE FROM club_members WHERE club_id = $1 AND user_id = $2`, clubID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete club member: %w", err)
	}
	return checkRowsAffected(result, ErrMemberNotFound)
}
