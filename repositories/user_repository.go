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
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	Create(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByEmail(ctx context.Context, exec SQLExecutor, email string) (*models.User, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.User, error)
	Update(ctx context.Context, exec SQLExecutor, user *models.User) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, profile_picture_url, created_at, updated_at`

func (r *postgresUserRepository) Create(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, profile_picture_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ProfilePictureURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isEmailConflict(err) {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(getExecutor(r.db, exec).QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, exec SQLExecutor, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(getExecutor(r.db, exec).QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *postgresUserRepository) Update(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		UPDATE users SET
			email = $1,
			password_hash = $2,
			first_name = $3,
			last_name = $4,
			profile_picture_url = $5,
			updated_at = $6
		WHERE id = $7`

	user.UpdatedAt = time.Now()
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ProfilePictureURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isEmailConflict(err) {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkRowsAffected(result, ErrUserNotFound)
}

// Delete removes the user together with every row that references it.
func (r *postgresUserRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := getExecutor(r.db, exec)
	cleanup := []string{
		`DELETE FROM challenge_entries WHERE user_id = $1`,
		`DELETE FROM club_invitations WHERE user_id = $1 OR invited_by = $1`,
		`DELETE FROM club_members WHERE user_id = $1`,
	}
	for _, q := range cleanup {
		if _, err := executor.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete rows referencing user %d: %w", id, err)
		}
	}

	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isViolation(err, pqForeignKeyViolation, "") {
			return fmt.Errorf("user %d still referenced (created challenges): %w", id, err)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkRowsAffected(result, ErrUserNotFound)
}

// Уникальность email обеспечивают и constraint, и индекс по lower(email).
func isEmailConflict(err error) bool {
	return isViolation(err, pqUniqueViolation, "users_email_key") ||
		isViolation(err, pqUniqueViolation, "users_email_lower_idx")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var picture sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if picture.Valid {
		user.ProfilePictureURL = &picture.String
	}
	return user, nil
}
