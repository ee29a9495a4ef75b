package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sqliteMigrationsDir   = "internal/migrations/sql"
	postgresMigrationsDir = "internal/migrations/postgres/sql"
)

func newMigrationCmd() *cobra.Command {
	var pg bool

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := sqliteMigrationsDir
			if pg {
				dir = postgresMigrationsDir
			}

			filename, err := createMigration(dir, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Created migration: %s\n", filename)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pg, "postgres", false, "create the migration for the postgres history store")
	return cmd
}

func createMigration(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read migrations directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%06d_%s.sql", nextMigrationNum(entries), name))
	if _, err := os.Stat(filename); err == nil {
		return "", fmt.Errorf("migration file already exists: %s", filename)
	}

	content := fmt.Sprintf("-- Migration: %s\n\n", name)
	if err := os.WriteFile(filename, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return filename, nil
}

func nextMigrationNum(entries []os.DirEntry) int {
	var next int
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(prefix, "%d", &num); err != nil {
			continue
		}
		if num > next {
			next = num
		}
	}
	return next + 1
}
