package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gold-pulse/internal/db"
	"gold-pulse/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const usage = "usage: go run ./cmd/migrate [up|down|version] [steps]"

var (
	loadEnvFunc   = godotenv.Load
	connectDBFunc = func(ctx context.Context, dsn string) (db.Pool, func(), error) {
		pool, err := db.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
	exitFunc = os.Exit
)

func main() {
	_ = loadEnvFunc()
	_ = logger.Init(logger.Config{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	if err := run(context.Background(), os.Args[1:], os.Getenv("DATABASE_URL")); err != nil {
		log.Error().Err(err).Msg("migrate failed")
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, dsn string) error {
	if len(args) < 1 {
		return errors.New(usage)
	}
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	steps := 1
	switch args[0] {
	case "up", "version":
	case "down":
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid down steps: %q", args[1])
			}
			steps = n
		}
	default:
		return fmt.Errorf("unknown command %q. %s", args[0], usage)
	}

	migrations, err := db.Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	pool, closePool, err := connectDBFunc(ctx, dsn)
	if err != nil {
		return err
	}
	defer closePool()

	m := db.NewMigrator(pool, migrations)
	switch args[0] {
	case "up":
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("applied", n).Msg("migrations up complete")
	case "down":
		n, err := m.Down(ctx, steps)
		if err != nil {
			return err
		}
		log.Info().Int("rolled_back", n).Msg("migrations down complete")
	case "version":
		version, name, err := m.Version(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info().Msg("no migrations applied")
			return nil
		}
		log.Info().Int64("version", version).Str("name", name).Msg("current version")
	}
	return nil
}
