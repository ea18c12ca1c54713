// Package dedupe provides the optional idempotency fast-path cache in
// front of the orchestrator's Postgres run lookup. Grounded on
// internal/orchestrator/dedupe.go's DedupeStore/RedisDedupeStore: the same
// Get-returns-empty-string-on-miss / Set-with-TTL contract, generalized
// from a bare correlation-key cache to cache a full serialized
// IngestionRun so a cache hit can skip the Postgres round trip entirely.
package dedupe

import "context"
import "time"

// Store is a minimal key/value cache with TTL. Implementations never need
// to be consulted — a nil Store (or any Store returning a miss) just
// means every lookup falls through to Postgres, which remains the system
// of record.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
