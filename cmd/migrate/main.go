package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/crimestat/crimestat/internal/adapters/postgres"
	"github.com/crimestat/crimestat/internal/pkg/config"
	"github.com/crimestat/crimestat/internal/pkg/logging"
	"github.com/crimestat/crimestat/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|status>")
	}

	cfg, err := config.Load("crimestat-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("crimestat-migrate", cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		for _, f := range applied {
			fmt.Printf("OK  %s\n", f)
		}
		log.Println("all migrations applied")
	case "status":
		var n int64
		if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM query_log`).Scan(&n); err != nil {
			log.Fatalf("status: %v", err)
		}
		fmt.Printf("query_log rows: %d\n", n)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
