// Package database provides SQLite connectivity for the sqlite: channel spool.
//
// This package manages:
//   - Database connection with WAL mode so a spool can be read while written
//   - Embedded schema migrations (see the top-level migrations package)
//   - Connection lifecycle
//
// All queries use parameterised statements and the spool file is created
// with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "run.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Each migration file has both .up.sql and .down.sql variants.
package database
