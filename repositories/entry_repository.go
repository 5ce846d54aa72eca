package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/club-challenges/models"
)

var ErrEntryNotFound = errors.New("challenge entry not found")

// LeaderboardCandidate is an entry joined with its author, the input for a
// full leaderboard rebuild.
type LeaderboardCandidate struct {
	Entry *models.ChallengeEntry
	User  *models.User
}

type EntryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.ChallengeEntry) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ChallengeEntry, error)
	ListByChallenge(ctx context.Context, exec SQLExecutor, challengeID int) ([]*models.ChallengeEntry, error)
	ListByChallengeAndUser(ctx context.Context, exec SQLExecutor, challengeID, userID int) ([]*models.ChallengeEntry, error)
	Update(ctx context.Context, exec SQLExecutor, entry *models.ChallengeEntry) error
	ListLeaderboardCandidates(ctx context.Context, exec SQLExecutor, challengeID int) ([]LeaderboardCandidate, error)
	// ListChallengeIDsByUser returns the ids of challenges the user has entries in, ascending.
	ListChallengeIDsByUser(ctx context.Context, exec SQLExecutor, userID int) ([]int, error)
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

const entryColumns = `e.id, e.challenge_id, e.user_id, e.score, e.notes, e.created_at, e.updated_at`

func (r *postgresEntryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.ChallengeEntry) error {
	query := `
		INSERT INTO challenge_entries (challenge_id, user_id, score, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		entry.ChallengeID,
		entry.UserID,
		entry.Score,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if isViolation(err, pqForeignKeyViolation, "challenge_entries_challenge_id_fkey") {
			return ErrChallengeNotFound
		}
		if isViolation(err, pqForeignKeyViolation, "challenge_entries_user_id_fkey") {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create challenge entry: %w", err)
	}
	return nil
}

func (r *postgresEntryRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ChallengeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM challenge_entries e WHERE e.id = $1`
	entry, err := scanEntry(getExecutor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get challenge entry %d: %w", id, err)
	}
	return entry, nil
}

func (r *postgresEntryRepository) ListByChallenge(ctx context.Context, exec SQLExecutor, challengeID int) ([]*models.ChallengeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM challenge_entries e WHERE e.challenge_id = $1 ORDER BY e.created_at DESC, e.id DESC`
	return r.list(ctx, exec, query, challengeID)
}

func (r *postgresEntryRepository) ListByChallengeAndUser(ctx context.Context, exec SQLExecutor, challengeID, userID int) ([]*models.ChallengeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM challenge_entries e WHERE e.challenge_id = $1 AND e.user_id = $2 ORDER BY e.created_at DESC, e.id DESC`
	return r.list(ctx, exec, query, challengeID, userID)
}

func (r *postgresEntryRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.ChallengeEntry, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenge entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.ChallengeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresEntryRepository) Update(ctx context.Context, exec SQLExecutor, entry *models.ChallengeEntry) error {
	entry.UpdatedAt = time.Now()
	result, err := getExecutor(r.db, exec).ExecContext(ctx,
		`UPDATE challenge_entries SET score = $1, notes = $2, updated_at = $3 WHERE id = $4`,
		entry.Score, entry.Notes, entry.UpdatedAt, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update challenge entry: %w", err)
	}
	return checkRowsAffected(result, ErrEntryNotFound)
}

func (r *postgresEntryRepository) ListChallengeIDsByUser(ctx context.Context, exec SQLExecutor, userID int) ([]int, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx,
		`SELECT DISTINCT challenge_id FROM challenge_entries WHERE user_id = $1 ORDER BY challenge_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges of user %d: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan challenge id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postgresEntryRepository) ListLeaderboardCandidates(ctx context.Context, exec SQLExecutor, challengeID int) ([]LeaderboardCandidate, error) {
	query := `
		SELECT ` + entryColumns + `,
			u.id, u.email, u.password_hash, u.first_name, u.last_name, u.profile_picture_url, u.created_at, u.updated_at
		FROM challenge_entries e
		JOIN users u ON u.id = e.user_id
		WHERE e.challenge_id = $1
		ORDER BY e.created_at ASC, e.id ASC`
	// Порядок по времени нужен для тай-брейка: при равном счете выше тот, кто раньше.

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]LeaderboardCandidate, 0)
	for rows.Next() {
		e := &models.ChallengeEntry{}
		u := &models.User{}
		err := rows.Scan(
			&e.ID, &e.ChallengeID, &e.UserID, &e.Score, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
			&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.ProfilePictureURL, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard candidate: %w", err)
		}
		candidates = append(candidates, LeaderboardCandidate{Entry: e, User: u})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func scanEntry(row rowScanner) (*models.ChallengeEntry, error) {
	e := &models.ChallengeEntry{}
	err := row.Scan(&e.ID, &e.ChallengeID, &e.UserID, &e.Score, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
