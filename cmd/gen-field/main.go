// Command gen-field writes a reproducible synthetic tournament field as the
// three CSV feeds fairway reads, and can smoke test a running server with
// generated fields.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/fairway/internal/adapters/feed"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/smoke"
	"github.com/okian/fairway/internal/testfield"
	"github.com/okian/fairway/pkg/logger"
)

// Default configuration constants.
const (
	defaultTopN       = 20
	defaultTimeout    = 30 * time.Second
	directoryPerm     = 0o750
	defaultSmokeCount = 10
)

func main() {
	var (
		outDir      = flag.String("out", ".", "Directory the CSV feeds are written to")
		seed        = flag.Int64("seed", 1, "Seed of the generated field")
		competitors = flag.Int("competitors", testfield.DefaultCompetitors, "Competitors in the field")
		rounds      = flag.Int("rounds", testfield.DefaultRounds, "Rounds per competitor")
		noise       = flag.Float64("noise", testfield.DefaultNoise, "How far finishes stray from hidden skill")
		missing     = flag.Float64("missing", testfield.DefaultMissingRate, "Probability a stat cell is empty")
		eventID     = flag.String("event", "", "Event id (default derived from the seed)")
		baseURL     = flag.String("url", "", "Smoke test the service at this base URL instead of writing files")
		fields      = flag.Int("fields", defaultSmokeCount, "Fields to submit when smoke testing")
		topN        = flag.Int("top", defaultTopN, "Entries to read back per ranking when smoke testing")
		workers     = flag.Int("workers", runtime.NumCPU(), "Concurrent submitters when smoke testing")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		venue       = flag.String("venue", "", "Venue the smoke rankings ask for")
	)
	flag.Parse()

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *baseURL != "" {
		_, err := smoke.Run(ctx, smoke.Config{
			BaseURL:     *baseURL,
			Fields:      *fields,
			Competitors: *competitors,
			Seed:        *seed,
			TopN:        *topN,
			Workers:     *workers,
			Timeout:     *timeout,
			Template:    templates.Query{Venue: *venue},
		})
		if err != nil {
			logger.Get().Error(ctx, "smoke test failed", logger.Error(err))
			stop()
			os.Exit(1)
		}
		return
	}

	opts := []testfield.Option{
		testfield.WithSeed(*seed),
		testfield.WithCompetitors(*competitors),
		testfield.WithRounds(*rounds),
		testfield.WithNoise(*noise),
		testfield.WithMissingRate(*missing),
	}
	if *eventID != "" {
		opts = append(opts, testfield.WithEventID(*eventID))
	}
	if err := writeField(*outDir, testfield.Generate(opts...)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func writeField(dir string, f testfield.Field) error {
	if err := os.MkdirAll(dir, directoryPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"rounds.csv", func(w io.Writer) error { return feed.WriteRounds(w, f.Rounds) }},
		{"approach.csv", func(w io.Writer) error { return feed.WriteApproach(w, f.Approach) }},
		{"results.csv", func(w io.Writer) error { return feed.WriteResults(w, f.Results) }},
	}
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := writeFile(path, file.write); err != nil {
			return err
		}
		logger.Default().Info(context.Background(), "feed written", logger.String("path", path), logger.String("event", f.EventID))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return out.Close()
}
