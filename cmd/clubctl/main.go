// Command clubctl runs administrative tasks against the club challenges store.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/config"
	"github.com/Dosada05/club-challenges/db"
	"github.com/Dosada05/club-challenges/services"
)

func main() {
	app := &cli.App{
		Name:  "clubctl",
		Usage: "administrative tasks for club challenges",
		Commands: []*cli.Command{
			initDBCommand(),
			seedCommand(),
			deleteUserCommand(),
			rebuildCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type env struct {
	svc   *services.Services
	conn  *sql.DB
	close func()
}

// openEnv поднимает хранилище и сервисы так же, как сервер, но без HTTP.
func openEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store, conn, err := db.OpenStore(c.Context, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := services.New(services.Dependencies{
		Store:  store,
		Tokens: auth.NewTokenManager(cfg.JWTSecretKey, cfg.TokenTTL),
		Logger: logger,
	})

	e := &env{svc: svc, conn: conn, close: func() {}}
	if conn != nil {
		e.close = func() { conn.Close() }
	}
	return e, nil
}

func initDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-db",
		Usage: "create tables and indexes if they do not exist",
		Action: func(c *cli.Context) error {
			e, err := openEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Println("schema applied")
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "wipe the database and insert demo users, clubs, challenges and entries",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "users", Value: 12, Usage: "number of demo users"},
			&cli.IntFlag{Name: "clubs", Value: 3, Usage: "number of demo clubs"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			&cli.BoolFlag{Name: "keep", Usage: "do not wipe existing data"},
		},
		Action: func(c *cli.Context) error {
			e, err := openEnv(c)
			if err != nil {
				return err
			}
			defer e.close()

			if e.conn != nil && !c.Bool("keep") {
				if err := db.Reset(c.Context, e.conn); err != nil {
					return err
				}
			}

			s := newSeeder(e.svc, c.Uint64("seed"))
			res, err := s.Run(c.Context, c.Int("users"), c.Int("clubs"))
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d users, %d clubs, %d challenges, %d entries (password %q)\n",
				res.Users, res.Clubs, res.Challenges, res.Entries, seedPassword)
			return nil
		},
	}
}

func deleteUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete-user",
		Usage: "delete a user together with their memberships, invitations and entries",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "id", Required: true, Usage: "user id"},
		},
		Action: func(c *cli.Context) error {
			e, err := openEnv(c)
			if err != nil {
				return err
			}
			defer e.close()

			id := c.Int("id")
			if err := e.svc.Users.Delete(c.Context, id); err != nil {
				return err
			}
			fmt.Printf("user %d deleted\n", id)
			return nil
		},
	}
}

func rebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild-leaderboards",
		Usage: "recompute topScores of every challenge from its entries",
		Action: func(c *cli.Context) error {
			e, err := openEnv(c)
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.svc.Challenges.RebuildAllLeaderboards(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("rebuilt %d leaderboards\n", n)
			return nil
		},
	}
}
