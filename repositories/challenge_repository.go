package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/club-challenges/models"
)

var ErrChallengeNotFound = errors.New("challenge not found")

type ChallengeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, ch *models.Challenge) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error)
	ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.Challenge, error)
	ListAll(ctx context.Context, exec SQLExecutor) ([]*models.Challenge, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ChallengeStatus) error
	UpdateTopScores(ctx context.Context, exec SQLExecutor, id int, scores models.TopScores) error
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

const challengeColumns = `id, club_id, title, description, duration, status, start_date, end_date,
	created_by_id, score_type, score_unit, is_higher_better, top_scores, created_at, updated_at`

func (r *postgresChallengeRepository) Create(ctx context.Context, exec SQLExecutor, ch *models.Challenge) error {
	query := `
		INSERT INTO challenges (club_id, title, description, duration, status, start_date, end_date,
			created_by_id, score_type, score_unit, is_higher_better, top_scores)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	if ch.TopScores == nil {
		ch.TopScores = models.TopScores{}
	}
	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		ch.ClubID,
		ch.Title,
		ch.Description,
		ch.Duration,
		ch.Status,
		ch.StartDate,
		ch.EndDate,
		ch.CreatedByID,
		ch.ScoreType,
		ch.ScoreUnit,
		ch.IsHigherBetter,
		ch.TopScores,
	).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if isViolation(err, pqForeignKeyViolation, "challenges_club_id_fkey") {
			return ErrClubNotFound
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`
	return r.getOne(ctx, exec, query, id)
}

func (r *postgresChallengeRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, exec, query, id)
}

func (r *postgresChallengeRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Challenge, error) {
	ch, err := scanChallenge(getExecutor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}
	return ch, nil
}

func (r *postgresChallengeRepository) ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE club_id = $1 ORDER BY start_date DESC, id DESC`
	return r.list(ctx, exec, query, clubID)
}

func (r *postgresChallengeRepository) ListAll(ctx context.Context, exec SQLExecutor) ([]*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges ORDER BY id ASC`
	return r.list(ctx, exec, query)
}

func (r *postgresChallengeRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Challenge, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := make([]*models.Challenge, 0)
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return challenges, nil
}

func (r *postgresChallengeRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ChallengeStatus) error {
	result, err := getExecutor(r.db, exec).ExecContext(ctx,
		`UPDATE challenges SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update challenge status: %w", err)
	}
	return checkRowsAffected(result, ErrChallengeNotFound)
}

func (r *postgresChallengeRepository) UpdateTopScores(ctx context.Context, exec SQLExecutor, id int, scores models.TopScores) error {
	// top_scores пишется целиком, models.TopScores сериализуется в JSONB через Value().
	result, err := getExecutor(r.db, exec).ExecContext(ctx,
		`UPDATE challenges SET top_scores = $1, updated_at = $2 WHERE id = $3`, scores, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update top scores: %w", err)
	}
	return checkRowsAffected(result, ErrChallengeNotFound)
}

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	ch := &models.Challenge{}
	err := row.Scan(
		&ch.ID,
		&ch.ClubID,
		&ch.Title,
		&ch.Description,
		&ch.Duration,
		&ch.Status,
		&ch.StartDate,
		&ch.EndDate,
		&ch.CreatedByID,
		&ch.ScoreType,
		&ch.ScoreUnit,
		&ch.IsHigherBetter,
		&ch.TopScores,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ch, nil
}
