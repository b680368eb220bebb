package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/feed"
	"taskboard/internal/repository"
	"taskboard/internal/session"
	"taskboard/internal/tasks"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Mints a session token for an email so the API and websocket can be
// exercised without going through the provider. Optionally seeds tasks.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		email  string
		name   string
		seed   []string
		public bool
		dbURL  string
		secret string
	)
	flagSet := pflag.NewFlagSet("create_test_user", pflag.ContinueOnError)
	flagSet.StringVar(&email, "email", "tester@example.com", "identity to mint a token for")
	flagSet.StringVar(&name, "name", "Tester", "display name")
	flagSet.StringSliceVar(&seed, "seed", nil, "task bodies to create (repeatable)")
	flagSet.BoolVar(&public, "public", false, "make seeded tasks public")
	flagSet.StringVar(&dbURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string, needed for --seed")
	flagSet.StringVar(&secret, "jwt-secret", os.Getenv("JWT_SECRET"), "session signing secret")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	identity := domain.Identity(strings.ToLower(strings.TrimSpace(email)))
	tokens, err := session.NewTokens(secret, session.DefaultTTL)
	if err != nil {
		return err
	}
	token, claims, err := tokens.Issue(identity, name)
	if err != nil {
		return err
	}

	if len(seed) > 0 {
		if dbURL == "" {
			return fmt.Errorf("--seed needs DATABASE_URL")
		}
		pool := db.Connect(dbURL)
		defer pool.Close()

		repo := tasks.NewRepository(repository.NewTaskRepository(pool, feed.NewBroker()))
		for _, body := range seed {
			t, err := repo.Create(context.Background(), identity, body, domain.VisibilityFromBool(public))
			if err != nil {
				return fmt.Errorf("seed %q: %w", body, err)
			}
			fmt.Printf("task id=%s visibility=%s body=%q\n", t.ID, t.Visibility, t.Body)
		}
	}

	fmt.Printf("identity=%s expires=%s\n", identity, claims.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("token=%s\n", token)
	return nil
}
