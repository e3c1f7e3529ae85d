// Package database opens the BudgetWise SQLite file and migrates it.
//
// Every connection runs with foreign keys on and a busy timeout; WAL is
// optional. Schema changes are YYYYMMDD_HHMMSS_name.up.sql files with an
// optional .down.sql twin, embedded by the top-level migrations package and
// tracked in schema_migrations.
//
//	db, err := database.Open(ctx, database.Config{Path: "data/budgetwise.db", WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx)
package database
