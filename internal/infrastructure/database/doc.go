// Package database opens the SQLite file that holds the device registry
// and runs its schema migrations.
//
// With the sqlite reading backend the same file also carries one
// readings_<device> table per registered device. Those tables are created
// at runtime by the reading package and are outside the migration set;
// IsNoSuchTable and IsUniqueViolation classify the driver errors the
// reading and device packages need to tell apart.
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	applied, err := db.Migrate(ctx)
package database
