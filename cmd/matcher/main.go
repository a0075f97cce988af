package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/erain9/cdamatch/config"
	"github.com/erain9/cdamatch/pkg/core"
	"github.com/erain9/cdamatch/pkg/feed"
	"github.com/erain9/cdamatch/pkg/logging"
	"github.com/erain9/cdamatch/pkg/messaging"
	"github.com/erain9/cdamatch/pkg/otel"
	"github.com/rs/zerolog/log"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (YAML)")
	feedFile := flag.String("feed", "-", "Order feed to replay, - for stdin")
	showBook := flag.Bool("book", false, "Print the resting book after the replay")
	flag.Parse()

	if err := run(*configFile, *feedFile, *showBook); err != nil {
		fmt.Fprintf(os.Stderr, "matcher: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, feedFile string, showBook bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

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
		ServiceName:      cfg.Engine.Name,
		ServiceVersion:   cfg.Telemetry.ServiceVersion,
		Endpoint:         cfg.Telemetry.Endpoint,
		ExportInterval:   cfg.Telemetry.ExportInterval,
		CollectorEnabled: cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer cleanup()

	in, err := openFeed(feedFile)
	if err != nil {
		return err
	}
	defer in.Close()

	out, colorize, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	engine := core.NewEngine(core.WithTradeSender(messaging.NewWriterSender(out, colorize)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	log.Info().Str("feed", feedFile).Str("engine", cfg.Engine.Name).Msg("Replaying order feed")

	stats, err := feed.Run(ctx, feed.NewReader(in), engine)
	if err != nil {
		return fmt.Errorf("replay stopped after %d records: %w", stats.Records, err)
	}

	if showBook {
		fmt.Fprint(os.Stderr, engine.String())
	}
	return nil
}

func openFeed(path string) (io.ReadCloser, error) {
	if path == "-" || path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	return f, nil
}

// openOutput returns the trade sink. Files never get colour codes.
func openOutput(cfg *config.Config) (io.WriteCloser, bool, error) {
	if cfg.Output.Path == "" {
		return nopWriteCloser{os.Stdout}, cfg.Output.Color, nil
	}
	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, false, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
