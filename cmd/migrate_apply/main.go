package main

import (
	"context"
	"fmt"
	"os"

	"taskboard/internal/db"
	"taskboard/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		apply bool
		dsn   string
	)
	flagSet := pflag.NewFlagSet("migrate_apply", pflag.ContinueOnError)
	flagSet.BoolVar(&apply, "apply", false, "apply migrations instead of listing them")
	flagSet.StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string (default $DATABASE_URL)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if !apply {
		names, err := migrations.Names()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	if dsn == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Migrate(context.Background(), pool)
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
	return err
}
