// Package storage owns the embedded SQLite store: it opens or creates the
// database file, migrates the schema forward in place, enforces the one
// diary entry per date rule, and exposes small repositories over the pool.
package storage
