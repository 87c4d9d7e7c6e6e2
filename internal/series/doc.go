// Package series defines the core data model for seriesstore: timelines,
// fields, batches, and containers.
//
// A Timeline is a strictly increasing sequence of Unix-millisecond
// timestamps. A Field is one named array of values aligned index-for-index
// with a timeline; numeric fields may carry trailing per-sample dimensions
// (a vector or matrix per timestamp). A Batch is one producer delivery of
// {timeline, fields}. A Container is the aggregated, deduplicated state of
// one registered data type, grown by successive merges.
package series
