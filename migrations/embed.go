// Package migrations holds the BudgetWise schema as versioned SQL files.
// Importing it for side effects points the database package at them.
package migrations

import (
	"embed"

	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/database"
)

//go:embed *.up.sql *.down.sql
var files embed.FS

func init() {
	database.MigrationsFS, database.MigrationsDir = files, "."
}
