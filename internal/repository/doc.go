// Package repository implements the data access layer on PostgreSQL.
//
// All repositories follow a consistent pattern:
//
//   - Constructor function (NewXxxRepository) accepts a database.Querier
//   - Methods implement specific data operations
//   - Parameterized queries are used for all database interactions
//   - Missing rows surface as database.ErrNotFound
//
// Methods suffixed Tx take an explicit pgx.Tx and are meant to run inside a
// transaction managed by the caller, typically one leased from the
// transaction registry.
package repository
