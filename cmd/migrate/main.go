package main

import (
	"flag"
	"os"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	command := flag.String("command", "up", "migration command: up, down or version")
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	migrator, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open migrator")
	}
	defer migrator.Close()

	switch *command {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		log.Info().Msg("Migrations applied")
	case "down":
		if *steps < 1 {
			log.Fatal().Int("steps", *steps).Msg("steps must be at least 1")
		}
		if err := migrator.Down(*steps); err != nil {
			log.Fatal().Err(err).Msg("Rollback failed")
		}
		log.Info().Int("steps", *steps).Msg("Migrations rolled back")
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read schema version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}
}
