// seriesfeed feeds synthetic measurement batches through the ingest
// pipeline and reads them back through windowed views. It exists to
// exercise the store end to end and to demonstrate the intended wiring
// between an acquisition layer and the registry.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VictoriaMetrics/metrics"
	"github.com/xtxerr/seriesstore/internal/errors"
	"github.com/xtxerr/seriesstore/internal/ingest"
	"github.com/xtxerr/seriesstore/internal/loader"
	"github.com/xtxerr/seriesstore/internal/logging"
	"github.com/xtxerr/seriesstore/internal/merge"
	"github.com/xtxerr/seriesstore/internal/registry"
	"github.com/xtxerr/seriesstore/internal/series"
	"github.com/xtxerr/seriesstore/internal/summary"
	"github.com/xtxerr/seriesstore/internal/window"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	producers := flag.Int("producers", 0, "producer count (overrides config)")
	batches := flag.Int("batches", 0, "batches per producer (overrides config)")
	jsonLog := flag.Bool("json", false, "JSON log output")
	showMetrics := flag.Bool("metrics", false, "dump Prometheus metrics on exit")
	flag.Parse()

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = loader.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *producers > 0 {
		cfg.Feed.Producers = *producers
	}
	if *batches > 0 {
		cfg.Feed.Batches = *batches
	}
	if *jsonLog {
		cfg.Log.JSON = true
	}

	logging.Init(cfg.LogLevel(), cfg.Log.JSON)
	log := logging.Component("seriesfeed")
	log.Info("seriesfeed starting", "version", Version,
		"producers", cfg.Feed.Producers, "batches", cfg.Feed.Batches)

	// Build the store
	engine := merge.New(merge.Options{
		ChunkThreshold: cfg.Merge.ChunkThreshold,
		ChunkSize:      cfg.Merge.ChunkSize,
	})
	reg := registry.New(engine)

	for _, t := range cfg.Types {
		if _, err := reg.RegisterType(registry.TypeSpec{
			Name:    t.Name,
			Aliases: t.Aliases,
			Replace: t.Replace,
		}); err != nil {
			log.Error("register type", "name", t.Name, "error", err)
			os.Exit(1)
		}
	}

	svc := ingest.New(reg, ingest.Options{QueueSize: cfg.Ingest.QueueSize})
	if err := svc.Start(); err != nil {
		log.Error("start ingest", "error", err)
		os.Exit(1)
	}

	// Concurrent synthetic producers funneled through the single-writer
	// ingest queue.
	start := time.Now().Add(-time.Hour).UnixMilli()
	var g errgroup.Group
	for p := 0; p < cfg.Feed.Producers; p++ {
		p := p
		g.Go(func() error {
			key := fmt.Sprintf("signal-%02d", p)
			return produce(svc, key, start, cfg.Feed)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("producers failed", "error", err)
	}
	if err := svc.Stop(); err != nil {
		log.Error("stop ingest", "error", err)
	}

	st := svc.StatsSnapshot()
	log.Info("ingest complete",
		"received", st.Received, "stored", st.Stored,
		"rejected", st.Rejected, "dropped", st.Dropped, "rows", st.RowsIn)

	// Read everything back through windowed views.
	for _, key := range reg.Keys() {
		h, ok := reg.Grab(key)
		if !ok {
			continue
		}
		c := h.Container()
		tl, hasData := c.Timeline()
		if !hasData {
			log.Info("container empty", "key", key)
			continue
		}

		view, ok := reg.GrabComponent(key, "flux")
		if !ok {
			continue
		}
		// Window over the middle half of the record.
		span := tl[len(tl)-1] - tl[0]
		view.SetWindow(&window.Window{Start: tl[0] + span/4, End: tl[0] + 3*span/4})

		res, err := summary.FromView(view, cfg.Summary.Accuracy)
		if err != nil {
			log.Warn("summary failed", "key", key, "error", err)
			continue
		}
		log.Info("windowed summary", "key", key,
			"rows_total", c.Len(), "rows_window", len(view.Timeline()),
			"mean", res.Mean, "min", res.Min, "max", res.Max, "p95", res.P95)
	}

	if *showMetrics {
		metrics.WritePrometheus(os.Stdout, false)
	}
}

// produce submits overlapping ascending batches for one key. Each batch
// repeats the last OverlapRows timestamps of its predecessor with fresh
// values, exercising the dedup/newest-wins merge path.
func produce(svc *ingest.Service, key string, start int64, feed loader.FeedConfig) error {
	step := feed.StepMs
	if step <= 0 {
		step = 1000
	}
	advance := feed.BatchRows - feed.OverlapRows
	if advance < 1 {
		advance = feed.BatchRows
	}

	for b := 0; b < feed.Batches; b++ {
		base := start + int64(b*advance)*step
		batch := series.NewBatch()
		batch.Times = make([]int64, feed.BatchRows)
		flux := series.NewNumeric(nil, feed.BatchRows)
		vec := series.NewNumeric([]int{3}, feed.BatchRows)

		for i := 0; i < feed.BatchRows; i++ {
			ts := base + int64(i)*step
			batch.Times[i] = ts
			t := float64(ts-start) / 1000.0
			flux.Floats[i] = 100 + 10*math.Sin(t/60)
			vec.Floats[i*3+0] = math.Sin(t / 30)
			vec.Floats[i*3+1] = math.Cos(t / 30)
			vec.Floats[i*3+2] = t / 3600
		}
		batch.Fields["flux"] = flux
		batch.Fields["b_vec"] = vec

		for {
			err := svc.Submit(key, batch)
			if err == nil {
				break
			}
			if !errors.Is(err, errors.ErrQueueFull) {
				return err
			}
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}
