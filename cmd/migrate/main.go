package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/repository/sqlstore"
	"github.com/hawksec/hawk/migrations"
)

func main() {
	defaults := config.FromEnv().Progress
	driver := flag.String("driver", defaults.Driver, "database driver: sqlite or postgres")
	dsn := flag.String("dsn", defaults.DSN, "database DSN or sqlite file path")
	flag.Parse()

	cfg := config.ProgressConfig{Driver: *driver, DSN: *dsn}
	db, err := sqlstore.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database\n", cfg.Driver)

	applied, err := sqlstore.RunMigrations(db, cfg.Driver, migrations.FS())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		db.Close()
		os.Exit(1)
	}

	if len(applied) == 0 {
		fmt.Println("Database is up to date")
		return
	}
	for _, name := range applied {
		fmt.Printf("Applied %s\n", name)
	}
	fmt.Printf("\n%d migration(s) completed successfully\n", len(applied))
}
