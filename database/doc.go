// Package database provides backend selection and connection management for
// run metadata stores.
//
// Two backend families are supported, each a variant of Backend carrying its
// own URL building and pool sizing:
//
//   - SQLite: embedded backend; a location is a directory holding run_metadata.sqlite
//   - PostgreSQL: networked backend using a pgx connection pool; a location is a database name
//
// # Usage
//
//	cfg := database.Config{
//	    Type:     "sqlite",
//	    Location: ".runstore",
//	}
//
//	backend, err := cfg.Backend()
//	if err != nil {
//	    log.Fatal(err) // wraps runstore.ErrConfiguration
//	}
//
//	desc, err := backend.Resolve(".runstore")
//	db, err := database.Open(ctx, desc)
//	if err != nil {
//	    log.Fatal(err) // runstore.ErrNotInitialized when the store does not exist
//	}
//	defer db.Close()
//
// Resolve is pure, so descriptors can be compared by Key without connecting.
// Open never creates a store; Initialize does.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
