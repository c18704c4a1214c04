// migrate applies or rolls back the embedded SQL migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"yfi-bank/backend/internal/config"
	"yfi-bank/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("config:", err)
	}
	if cfg.DatabaseURL == "" {
		fatal("DATABASE_URL is not set; copy .env.example to .env or export it")
	}

	err = migrate.Run(cfg.DatabaseURL, *direction)
	switch {
	case err == nil:
		fmt.Println("migrations applied:", *direction)
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Println("database already up to date")
	default:
		fatal("migrate:", err)
	}
}

func fatal(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}
