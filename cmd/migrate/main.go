package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const commandTimeout = 30 * time.Second

const usage = `usage: migrate [flags] <up|down|status>

commands:
  up      apply pending migrations (-steps 0 applies all)
  down    roll back migrations (-steps defaults to 1)
  status  print current schema version

flags:
  -steps N   number of migrations to apply or roll back
  -dsn DSN   PostgreSQL DSN (fallback: STOREFRONT_POSTGRES_DSN)
`

func main() {
	_ = godotenv.Load()

	var (
		steps int
		dsn   string
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: STOREFRONT_POSTGRES_DSN)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := strings.ToLower(flag.Arg(0))

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("STOREFRONT_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	switch command {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			fail("migrate up failed: %v", err)
		}
		report(ctx, store, "migrate up ok")
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			fail("migrate down failed: %v", err)
		}
		report(ctx, store, "migrate down ok")
	case "status":
		report(ctx, store, "migration status")
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// report печатает текущую версию схемы и число применённых миграций.
func report(ctx context.Context, store *postgres.Store, prefix string) {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		fail("migration status failed: %v", err)
	}
	fmt.Printf("%s: version=%d applied=%d\n", prefix, version, count)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
