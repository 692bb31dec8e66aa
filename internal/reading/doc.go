// Package reading stores temperature readings, one table per device.
//
// Each registered device owns a table named readings_<device>. Tables are
// created lazily with create-if-absent semantics, appended to in arrival
// order, and read newest-first. Every Store method validates the device
// name with the ident package before it is interpolated into SQL, whatever
// the caller has already checked.
//
// Three implementations exist:
//
//   - SQLiteStore keeps the tables in the registry database (default).
//   - PostgresStore keeps them in PostgreSQL via a pgx pool.
//   - CachedStore wraps either one with a Redis latest-reading cache.
//
// Errors:
//
//	if errors.Is(err, reading.ErrUnknownDevice) {
//	    // the store was never provisioned
//	}
package reading
