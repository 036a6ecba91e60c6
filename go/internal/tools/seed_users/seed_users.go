package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/lucky9/go/internal/dbconfig"
)

// Seeds demo players for local development:
//
//	go run ./go/internal/tools/seed_users -users alice,bob,carol
func main() {
	names := flag.String("users", "alice,bob,carol,dave", "comma-separated usernames to seed")
	flag.Parse()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var (
		inserted int
		skipped  int
		errs     int
	)

	for _, name := range strings.Split(*names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO users (id, username)
            VALUES ($1, $2)
            ON CONFLICT (username) DO NOTHING
        `, uuid.New(), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting user %s: %v\n", name, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf("seeded users: %d inserted, %d skipped, %d errors\n", inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
