package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/club-challenges/models"
)

var ErrClubNotFound = errors.New("club not found")

type ClubRepository interface {
	Create(ctx context.Context, exec SQLExecutor, club *models.Club) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Club, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Club, error)
	ListByMember(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Club, error)
	UpdateImage(ctx context.Context, exec SQLExecutor, id int, kind models.ClubImageKind, url string) error
}

type postgresClubRepository struct {
	db *sql.DB
}

func NewPostgresClubRepository(db *sql.DB) ClubRepository {
	return &postgresClubRepository{db: db}
}

const clubColumns = `c.id, c.name, c.description, c.is_private, c.logo_url, c.cover_image_url, c.created_at, c.updated_at`

func (r *postgresClubRepository) Create(ctx context.Context, exec SQLExecutor, club *models.Club) error {
	query := `
		INSERT INTO clubs (name, description, is_private, logo_url, cover_image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		club.Name,
		club.Description,
		club.IsPrivate,
		club.LogoURL,
		club.CoverImageURL,
	).Scan(&club.ID, &club.CreatedAt, &club.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create club: %w", err)
	}
	return nil
}

func (r *postgresClubRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Club, error) {
	query := `SELECT ` + clubColumns + ` FROM clubs c WHERE c.id = $1`
	club, err := scanClub(getExecutor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", id, err)
	}
	return club, nil
}

func (r *postgresClubRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Club, error) {
	query := `SELECT ` + clubColumns + ` FROM clubs c ORDER BY c.id ASC`
	return r.list(ctx, exec, query)
}

func (r *postgresClubRepository) ListByMember(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Club, error) {
	query := `
		SELECT ` + clubColumns + `
		FROM clubs c
		JOIN club_members m ON m.club_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.id ASC`
	return r.list(ctx, exec, query, userID)
}

func (r *postgresClubRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Club, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	defer rows.Close()

	clubs := make([]*models.Club, 0)
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan club: %w", err)
		}
		clubs = append(clubs, club)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *postgresClubRepository) UpdateImage(ctx context.Context, exec SQLExecutor, id int, kind models.ClubImageKind, url string) error {
	var query string
	switch kind {
	case models.ClubImageLogo:
		query = `UPDATE clubs SET logo_url = $1, updated_at = $2 WHERE id = $3`
	case models.ClubImageCover:
		query = `UPDATE clubs SET cover_image_url = $1, updated_at = $2 WHERE id = $3`
	default:
		return fmt.Errorf("unknown club image kind %q", kind)
	}

	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, url, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update club image: %w", err)
	}
	return checkRowsAffected(result, ErrClubNotFound)
}

func scanClub(row rowScanner) (*models.Club, error) {
	club := &models.Club{}
	err := row.Scan(
		&club.ID,
		&club.Name,
		&club.Description,
		&club.IsPrivate,
		&club.LogoURL,
		&club.CoverImageURL,
		&club.CreatedAt,
		&club.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return club, nil
}
