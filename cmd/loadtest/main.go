package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/erain9/cdamatch/config"
	"github.com/erain9/cdamatch/pkg/core"
	"github.com/erain9/cdamatch/pkg/feed"
	"github.com/erain9/cdamatch/pkg/logging"
	"github.com/erain9/cdamatch/pkg/marketmaker"
	"github.com/erain9/cdamatch/pkg/otel"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// latency is recorded in microseconds, up to 10s
const (
	minLatency = 1
	maxLatency = 10_000_000
)

func main() {
	configFile := flag.String("config", "", "Path to config file (YAML)")
	events := flag.Int("events", 0, "Number of events to submit (overrides config)")
	eventRate := flag.Int("rate", -1, "Events per second, 0 for unlimited (overrides config)")
	workers := flag.Int("workers", 0, "Concurrent producers (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
	if *events > 0 {
		cfg.LoadTest.Events = *events
	}
	if *eventRate >= 0 {
		cfg.LoadTest.Rate = *eventRate
	}
	if *workers > 0 {
		cfg.LoadTest.Workers = *workers
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Load test failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	closer := logging.Setup(logging.Config{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Pretty(),
		Output:     os.Stderr,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer closer.Close()

	cleanup, err := otel.Init(otel.Config{
		ServiceName:      cfg.Engine.Name + "-loadtest",
		ServiceVersion:   cfg.Telemetry.ServiceVersion,
		Endpoint:         cfg.Telemetry.Endpoint,
		ExportInterval:   cfg.Telemetry.ExportInterval,
		CollectorEnabled: cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer cleanup()

	if cfg.Telemetry.Enabled {
		if err := otel.StartRuntimeMetrics(); err != nil {
			log.Warn().Err(err).Msg("Failed to start runtime metrics")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	engine := core.NewEngine()
	seq := feed.NewSequencer(engine)

	if cfg.MarketMaker.Enabled {
		mmCfg := &marketmaker.Config{
			NumLevels:         cfg.MarketMaker.NumLevels,
			BaseSpreadPercent: cfg.MarketMaker.BaseSpreadPercent,
			PriceStepPercent:  cfg.MarketMaker.PriceStepPercent,
			OrderSize:         cfg.MarketMaker.OrderSize,
			UpdateInterval:    cfg.MarketMaker.UpdateInterval,
			FallbackPrice:     cfg.LoadTest.MidPrice,
		}
		mm, err := marketmaker.NewMarketMaker(mmCfg, log.Logger, seq,
			marketmaker.NewBookPriceFetcher(engine, cfg.LoadTest.MidPrice),
			marketmaker.NewLayeredSymmetricQuoting(mmCfg, log.Logger))
		if err != nil {
			return err
		}
		if err := mm.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mm.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error stopping market maker")
			}
		}()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.LoadTest.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LoadTest.Rate), cfg.LoadTest.Rate)
	}

	log.Info().
		Int("events", cfg.LoadTest.Events).
		Int("rate", cfg.LoadTest.Rate).
		Int("workers", cfg.LoadTest.Workers).
		Bool("market_maker", cfg.MarketMaker.Enabled).
		Msg("Starting load test")

	var (
		remaining = int64(cfg.LoadTest.Events)
		wg        sync.WaitGroup
		results   = make([]*workerResult, cfg.LoadTest.Workers)
	)

	start := time.Now()
	for w := 0; w < cfg.LoadTest.Workers; w++ {
		results[w] = newWorkerResult()
		gen := newGenerator(cfg.LoadTest.Seed+int64(w), cfg.LoadTest.MidPrice, cfg.LoadTest.Spread)

		wg.Add(1)
		go func(res *workerResult) {
			defer wg.Done()
			for atomic.AddInt64(&remaining, -1) >= 0 {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				began := time.Now()
				done, err := seq.Submit(ctx, gen.next)
				res.record(time.Since(began), done, err)
			}
		}(results[w])
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := newWorkerResult()
	for _, res := range results {
		total.merge(res)
	}

	printSummary(total, elapsed, engine.Snapshot())

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}

type workerResult struct {
	latency      *hdrhistogram.Histogram
	submitted    int64
	rejected     int64
	cancelMisses int64
	trades       int64
	stops        int64
}

func newWorkerResult() *workerResult {
	return &workerResult{latency: hdrhistogram.New(minLatency, maxLatency, 3)}
}

func (r *workerResult) record(took time.Duration, done *core.Done, err error) {
	_ = r.latency.RecordValue(took.Microseconds())

	switch {
	case errors.Is(err, core.ErrNotFound):
		r.cancelMisses++
	case err != nil:
		r.rejected++
		return
	default:
		r.submitted++
	}
	if done != nil {
		r.trades += int64(len(done.Trades))
		r.stops += int64(len(done.Activated))
	}
}

func (r *workerResult) merge(o *workerResult) {
	r.latency.Merge(o.latency)
	r.submitted += o.submitted
	r.rejected += o.rejected
	r.cancelMisses += o.cancelMisses
	r.trades += o.trades
	r.stops += o.stops
}

func printSummary(r *workerResult, elapsed time.Duration, snap core.Snapshot) {
	title := color.New(color.FgCyan, color.Bold).SprintFunc()
	value := color.New(color.FgGreen).SprintfFunc()
	warn := color.New(color.FgRed).SprintfFunc()

	count := r.latency.TotalCount()
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(count) / elapsed.Seconds()
	}

	fmt.Println(title("Load test summary"))
	fmt.Printf("  duration          %s\n", value("%v", elapsed.Round(time.Millisecond)))
	fmt.Printf("  events            %s\n", value("%d", count))
	fmt.Printf("  throughput        %s\n", value("%.0f events/s", throughput))
	fmt.Printf("  submitted         %s\n", value("%d", r.submitted))
	fmt.Printf("  cancel misses     %s\n", value("%d", r.cancelMisses))
	if r.rejected > 0 {
		fmt.Printf("  rejected          %s\n", warn("%d", r.rejected))
	} else {
		fmt.Printf("  rejected          %s\n", value("%d", r.rejected))
	}
	fmt.Printf("  trades            %s\n", value("%d", r.trades))
	fmt.Printf("  stops triggered   %s\n", value("%d", r.stops))

	fmt.Println(title("Latency (us)"))
	fmt.Printf("  mean %s  p50 %s  p99 %s  p99.9 %s  max %s\n",
		value("%.1f", r.latency.Mean()),
		value("%d", r.latency.ValueAtQuantile(50)),
		value("%d", r.latency.ValueAtQuantile(99)),
		value("%d", r.latency.ValueAtQuantile(99.9)),
		value("%d", r.latency.Max()),
	)

	fmt.Println(title("Book"))
	fmt.Printf("  resting bids %s  asks %s  buy stops %s  sell stops %s\n",
		value("%d", snap.BuyOrders), value("%d", snap.SellOrders),
		value("%d", snap.BuyStops), value("%d", snap.SellStops))
	if snap.HasLastTrade {
		fmt.Printf("  last trade %s\n", value("%s", core.FormatPrice(snap.LastTradePrice)))
	}
}
