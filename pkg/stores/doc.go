// Package stores keeps the history of resolve runs in SQLite: one row per
// run with its exit code and plan checksum, and one row per variant with its
// diagnostic counts. The schema is versioned with embedded migrations.
package stores
