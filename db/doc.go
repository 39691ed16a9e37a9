// Package db provides the local database layer for network designs.
// It stores coupler chain designs in SQLite so they can be edited offline and served by the
// bundled design server.
//
// This package is responsible for:
// - Establishing and managing database connections (`db.go`).
// - Defining database-specific data structures that map to the design and coupler_stage tables.
// - Implementing domain.DesignRepository on top of sqlx.
// - Handling data conversion between domain chains and rows, reusing the codec's ratio
//   normalization so stored and remote designs decode the same way.
// - Managing database migrations (`migrations/`).
package db
