package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"portrait-studio/internal/config"
	pg "portrait-studio/internal/infra/db/postgres"
	"portrait-studio/internal/infra/logging"
	"portrait-studio/internal/usecase"
)

// seed issues a batch of redemption codes straight into Postgres and prints
// them, one per line.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	amount := flag.Int("amount", 10, "number of codes to issue")
	points := flag.Int64("points", 1, "points per code")
	length := flag.Int("length", 8, "code length")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Backend != "postgres" {
		log.Fatalf("seed needs the postgres backend, got %q", cfg.Storage.Backend)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	adminUC := usecase.NewAdminUseCase(
		pg.NewPostgresCodeRepo(pool),
		pg.NewPostgresCreditRepo(pool),
		pg.NewPostgresUsageRepo(pool),
		cfg.Codes.Alphabet,
		logger,
	)

	res, err := adminUC.IssueCodes(ctx, usecase.IssueRequest{Amount: *amount, Points: *points, Length: *length})
	if err != nil {
		log.Fatalf("issue codes: %v", err)
	}
	for _, c := range res.Codes {
		fmt.Println(c)
	}
	if res.Count < *amount {
		log.Printf("issued %d of %d codes; the code space is nearly exhausted for length %d", res.Count, *amount, *length)
	}
}
