package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Transactor runs fn inside one database transaction. fn's error rolls the
// transaction back and is returned unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) error
}

type postgresTransactor struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresTransactor(db *sql.DB, logger *slog.Logger) Transactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresTransactor{db: db, logger: logger}
}

// WithinTx uses READ COMMITTED; writers that read-modify-write a row lock it with
// SELECT ... FOR UPDATE inside fn.
func (t *postgresTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) (txErr error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				t.logger.ErrorContext(ctx, "transaction rollback failed",
					slog.Any("error", rbErr), slog.Any("cause", txErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(ctx, tx)
}
