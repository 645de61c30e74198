// Package database manages the PostgreSQL connection pool, schema
// migrations, and the registry that tracks client-owned transactions.
package database
