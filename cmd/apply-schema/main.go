package main

import (
	"database/sql"
	"fmt"
	"os"

	"carewatch-alert/internal/config"

	_ "github.com/lib/pq"
)

func main() {
	schemaFile := "scripts/db/schema.sql"
	if len(os.Args) > 1 {
		schemaFile = os.Args[1]
	}

	sqlBytes, err := os.ReadFile(schemaFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read schema file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	if _, err := db.Exec(string(sqlBytes)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Alert engine schema applied successfully")
}
