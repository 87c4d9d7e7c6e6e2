// Package ingest provides the single-writer pump between batch
// producers and the registry.
//
// Producers from the acquisition layer submit batches concurrently; a
// single consumer goroutine drains the bounded queue and stashes them,
// enforcing the one-writer-per-Container discipline at a service
// boundary. The queue rejects rather than blocks when full.
package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/xtxerr/seriesstore/internal/errors"
	"github.com/xtxerr/seriesstore/internal/logging"
	"github.com/xtxerr/seriesstore/internal/registry"
	"github.com/xtxerr/seriesstore/internal/series"
)

var (
	batchesReceived = metrics.NewCounter("seriesstore_ingest_batches_received_total")
	batchesStored   = metrics.NewCounter("seriesstore_ingest_batches_stored_total")
	batchesRejected = metrics.NewCounter("seriesstore_ingest_batches_rejected_total")
	batchesDropped  = metrics.NewCounter("seriesstore_ingest_batches_dropped_total")
	rowsStored      = metrics.NewCounter("seriesstore_ingest_rows_stored_total")
)

// Options configures the ingest service.
type Options struct {
	// QueueSize is the capacity of the submission queue.
	QueueSize int
}

// DefaultOptions returns options suitable for typical producer counts.
func DefaultOptions() Options {
	return Options{QueueSize: 1024}
}

// Request is one submission: a batch destined for a type key.
type Request struct {
	Key          string
	SecondaryKey string
	Batch        *series.Batch
}

// Stats holds ingest service statistics.
type Stats struct {
	Received atomic.Int64
	Stored   atomic.Int64
	Rejected atomic.Int64
	Dropped  atomic.Int64
	RowsIn   atomic.Int64
}

// Service drains submitted batches into the registry.
type Service struct {
	reg  *registry.Registry
	opts Options
	log  *slog.Logger

	ch      chan Request
	stopCh  chan struct{}
	running atomic.Bool
	wg      sync.WaitGroup

	stats Stats
}

// New creates an ingest service writing into reg.
func New(reg *registry.Registry, opts Options) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions().QueueSize
	}
	return &Service{
		reg:    reg,
		opts:   opts,
		log:    logging.Component("ingest"),
		ch:     make(chan Request, opts.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (s *Service) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.ErrRunning
	}
	s.wg.Add(1)
	go s.run()
	s.log.Info("ingest service started", "queue_size", s.opts.QueueSize)
	return nil
}

// Stop stops the service, draining any batches already queued before
// returning.
func (s *Service) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	close(s.stopCh)
	s.wg.Wait()

	// Final drain: everything accepted before Stop is stored.
	for {
		select {
		case req := <-s.ch:
			s.store(req)
		default:
			s.log.Info("ingest service stopped",
				"stored", s.stats.Stored.Load(), "rejected", s.stats.Rejected.Load())
			return nil
		}
	}
}

// Submit queues a batch for ingestion. It never blocks: a full queue
// returns ErrQueueFull and the caller may retry.
func (s *Service) Submit(key string, batch *series.Batch) error {
	return s.SubmitKeyed(key, "", batch)
}

// SubmitKeyed queues a batch under a composite type/secondary key.
func (s *Service) SubmitKeyed(key, secondaryKey string, batch *series.Batch) error {
	if !s.running.Load() {
		return errors.ErrNotRunning
	}
	s.stats.Received.Add(1)
	batchesReceived.Inc()

	select {
	case s.ch <- Request{Key: key, SecondaryKey: secondaryKey, Batch: batch}:
		return nil
	default:
		s.stats.Dropped.Add(1)
		batchesDropped.Inc()
		return errors.ErrQueueFull
	}
}

// run is the single consumer loop.
func (s *Service) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.ch:
			s.store(req)
		}
	}
}

// store stashes one request. Rejected batches are logged and counted;
// the registry guarantees the stored state is untouched.
func (s *Service) store(req Request) {
	var err error
	if req.SecondaryKey != "" {
		_, err = s.reg.StashKeyed(req.Key, req.SecondaryKey, req.Batch)
	} else {
		_, err = s.reg.Stash(req.Key, req.Batch)
	}
	if err != nil {
		s.stats.Rejected.Add(1)
		batchesRejected.Inc()
		s.log.Warn("batch rejected", "key", req.Key, "error", err)
		return
	}
	s.stats.Stored.Add(1)
	s.stats.RowsIn.Add(int64(req.Batch.Len()))
	batchesStored.Inc()
	rowsStored.Add(req.Batch.Len())
}

// StatsSnapshot returns a copy of the service counters.
func (s *Service) StatsSnapshot() StatsSnapshot {
	return StatsSnapshot{
		Received: s.stats.Received.Load(),
		Stored:   s.stats.Stored.Load(),
		Rejected: s.stats.Rejected.Load(),
		Dropped:  s.stats.Dropped.Load(),
		RowsIn:   s.stats.RowsIn.Load(),
	}
}

// StatsSnapshot holds a point-in-time copy of service counters.
type StatsSnapshot struct {
	Received int64
	Stored   int64
	Rejected int64
	Dropped  int64
	RowsIn   int64
}

// IsRunning returns whether the service is running.
func (s *Service) IsRunning() bool { return s.running.Load() }
