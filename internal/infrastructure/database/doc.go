// Package database opens the coordinator's SQLite file and applies its
// schema migrations.
//
// The only table the coordinator writes is the route execution history.
// Device state is never persisted: it is rebuilt from discovery on every
// start.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package and come in
// .up.sql/.down.sql pairs.
package database
