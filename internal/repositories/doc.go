// Package repositories implements SQLite persistence for domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [TokenRepository] : OAuth token persistence keyed by music service
//   - [TokenStore] : adapter saving refreshed tokens for a single service
//
// Reconciliation state (profile defaults and overlays) is deliberately never stored here; it lives only in memory.
package repositories
