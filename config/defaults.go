// Package config provides configuration defaults for seriesstore.
//
// This package defines all configurable constants with documented
// defaults. Users can override these values via config.yaml or command
// line flags.
package config

// =============================================================================
// Merge Defaults
// =============================================================================

const (
	// DefaultChunkThreshold is the union length above which a merge runs
	// its scatter phase in fixed-size sequential chunks. Chunking bounds
	// peak temporary memory and produces identical results.
	// Override via config: merge.chunk_threshold
	DefaultChunkThreshold = 1 << 20

	// DefaultChunkSize is the number of union positions processed per
	// chunk on the chunked merge path.
	// Override via config: merge.chunk_size
	DefaultChunkSize = 1 << 16
)

// =============================================================================
// Ingest Defaults
// =============================================================================

const (
	// DefaultQueueSize is the capacity of the ingest submission queue.
	// Producers get an immediate queue-full error instead of blocking.
	// Override via config: ingest.queue_size
	DefaultQueueSize = 1024
)

// =============================================================================
// Summary Defaults
// =============================================================================

const (
	// DefaultSummaryAccuracy is the DDSketch relative accuracy used for
	// percentile estimation (0.01 = 1% error).
	// Override via config: summary.accuracy
	DefaultSummaryAccuracy = 0.01
)
