package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"couple-pairing-service/internal/config"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/infra/db/postgres"
	"couple-pairing-service/internal/infra/logging"
)

type seedAccount struct {
	email    string
	name     string
	password string
}

var devAccounts = []seedAccount{
	{"alice@example.com", "Alice", "password-alice"},
	{"bob@example.com", "Bob", "password-bob"},
	{"carol@example.com", "Carol", "password-carol"},
	{"dave@example.com", "Dave", "password-dave"},
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	schemaPath := flag.String("schema", "deploy/postgres/init.sql", "path to schema DDL")
	truncate := flag.Bool("truncate", false, "wipe all pairing data before seeding")
	withFixtures := flag.Bool("fixtures", false, "insert development accounts")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *schemaPath).Msg("could not read schema")
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		logger.Fatal().Err(err).Msg("schema apply failed")
	}
	logger.Info().Msg("schema applied")

	if *truncate {
		if _, err := pool.Exec(ctx, `TRUNCATE invitations, couples, accounts`); err != nil {
			logger.Fatal().Err(err).Msg("truncate failed")
		}
		logger.Info().Msg("tables truncated")
	}

	if !*withFixtures {
		return
	}

	repo := postgres.NewPostgresAccountRepo(pool)
	for _, s := range devAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal().Err(err).Msg("bcrypt failed")
		}
		acct, err := model.NewAccount("", s.email, s.name, string(hash))
		if err != nil {
			logger.Fatal().Err(err).Str("email", s.email).Msg("invalid fixture account")
		}
		if err := repo.Save(ctx, nil, acct); err != nil {
			logger.Fatal().Err(err).Str("email", s.email).Msg("seed insert failed")
		}
		logger.Info().Str("email", s.email).Str("id", acct.ID).Msg("account seeded")
	}
}
