package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/akriventsev/fulfillment/internal/repository"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("POSTGRES_DSN"), "Postgres DSN")
	showVersion := flag.Bool("version", false, "print current schema version and exit")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("Postgres DSN is required (-dsn flag or POSTGRES_DSN)")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *showVersion {
		version, err := repository.MigrationVersion(db)
		if err != nil {
			log.Fatalf("Failed to get schema version: %v", err)
		}
		log.Printf("schema version: %d", version)
		return
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("migrations applied")
}
