package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/club-challenges/config"
	"github.com/Dosada05/club-challenges/repositories"
)

const connectTimeout = 5 * time.Second

// OpenStore создает хранилище по STORE_DRIVER. Для postgres схема применяется сразу,
// возвращаемый *sql.DB закрывает вызывающий (для memory он nil).
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return repositories.NewMemoryStore().Store(), nil, nil
	}

	conn, err := Connect(cfg.DatabaseURL, connectTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	logger.Info("database connection established")
	return repositories.NewPostgresStore(conn, logger), conn, nil
}

// Reset удаляет все данные и сбрасывает счетчики id.
func Reset(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `TRUNCATE challenge_entries, challenges, club_invitations,
		club_members, clubs, users RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}
