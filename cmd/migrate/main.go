// Command migrate applies or rolls back the database schema without
// starting the booking service.
package main

import (
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/database/migrations"
)

func main() {
	down := flag.Bool("down", false, "roll back all migrations instead of applying them")
	dir := flag.String("dir", "./migrations", "directory containing migration files")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open Postgres connection: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.Options{
		MigrationsDir: *dir,
		AutoMigrate:   true,
	})
	defer runner.Close()

	if *down {
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Rolled back all migrations")
		return
	}

	if err := runner.MigrateUp(); err != nil {
		log.Fatalf("Migration up failed: %v", err)
	}
	log.Println("Migrations applied")
}
