// migrate applies the embedded schema migrations. Usage: migrate [up|down]
package main

import (
	"fmt"
	"os"

	"doctrack/api/internal/config"
	"doctrack/api/internal/db/migrate"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.Postgres.DSN, direction); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", direction, err)
		os.Exit(1)
	}
	fmt.Printf("migrations %s applied\n", direction)
}
