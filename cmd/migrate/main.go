package main

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xpledger/internal/config"
	"xpledger/internal/db"

	"github.com/jmoiron/sqlx"
)

const downMarker = "-- +migrate Down"

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())`); err != nil {
		log.Fatalf("failed to ensure schema_migrations: %v", err)
	}

	applied, err := appliedMigrations(database)
	if err != nil {
		log.Fatalf("failed to read migration state: %v", err)
	}

	files, err := filepath.Glob("migrations/*.sql")
	if err != nil {
		log.Fatalf("failed to list migrations: %v", err)
	}
	sort.Strings(files)

	ran := 0
	for _, file := range files {
		name := filepath.Base(file)
		if applied[name] {
			continue
		}
		if err := apply(database, file); err != nil {
			log.Fatalf("migration %s failed: %v", name, err)
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			log.Fatalf("failed to record migration %s: %v", name, err)
		}
		log.Printf("applied %s", name)
		ran++
	}
	if ran == 0 {
		log.Printf("schema up to date")
	}
}

func appliedMigrations(database *sqlx.DB) (map[string]bool, error) {
	var names []string
	if err := database.Select(&names, `SELECT filename FROM schema_migrations`); err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

// apply runs the up section of one migration file, statement by statement.
func apply(database *sqlx.DB, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	up, _, _ := strings.Cut(string(content), downMarker)
	for _, stmt := range splitStatements(up) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements cuts a migration section on semicolons at line ends.
// Comment-only lines are dropped so markers never reach the server.
func splitStatements(section string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(section))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
