package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nulzo/model-registry/internal/cli"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/platform/logger"
	"github.com/nulzo/model-registry/internal/seed"
	"github.com/nulzo/model-registry/internal/server/middleware"
	"github.com/nulzo/model-registry/internal/store"
)

func main() {
	file := flag.String("file", "", "Seed file (defaults to seed.file, then builtin_models.yaml)")
	subject := flag.String("admin-token", "", "Also print an admin JWT for this subject")
	ttl := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed token")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger.Initialize(logger.FromSettings(cfg.Log.Level, cfg.Log.Format))
	defer logger.Sync()

	repo, err := store.Open(store.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, logger.Named("store"))
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	path := *file
	if path == "" {
		path = cfg.Seed.File
	}
	if path == "" {
		path = "builtin_models.yaml"
	}

	n, err := seed.Apply(context.Background(), repo, path, logger.Named("seed"))
	if err != nil {
		log.Fatal(err)
	}
	cli.Success(os.Stdout, "Seeded %d built-in models from %s", n, path)

	if *subject != "" {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("auth.jwt_secret is not set")
		}
		token, err := middleware.IssueToken(cfg.Auth.JWTSecret, *subject, true, *ttl)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(cli.Rule())
		fmt.Printf("Admin token for %s:\n%s\n", cli.Style(*subject, cli.Cyan), token)
		fmt.Println(cli.Rule())
	}
}
