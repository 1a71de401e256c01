// Package indexer populates the prefix index from the canonical store.
//
// The Indexer type supports two modes:
//   - Full rebuild: stream every entity, stage a fresh generation of index
//     keys and swap it in atomically on completion.
//   - Incremental patch: fetch entities whose updated timestamp advanced past
//     the last watermark, upsert the live ones and remove the soft-deleted.
//
// Per-country school rebuilds run concurrently on a worker pool. Entities
// with unresolvable parent references are skipped and logged as data-quality
// warnings; any store-level write failure aborts the whole run, which must
// then be retried wholesale.
//
// Indexing is single-writer by deployment convention: callers must not run
// two rebuilds of the same index namespace concurrently.
package indexer
