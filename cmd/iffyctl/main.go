package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"iffy/internal/infra"
	"iffy/internal/metrics"
	"iffy/internal/poller"
)

func main() {
	_ = godotenv.Load()

	budget := poller.DefaultBudget()
	var (
		apiURL     string
		token      string
		metricsOut string
		asJSON     bool
	)
	flag.StringVar(&apiURL, "api", envOr("IFFY_API_URL", "http://localhost:8080"), "base URL of the gift API")
	flag.StringVar(&token, "token", os.Getenv("IFFY_TOKEN"), "optional bearer token")
	flag.DurationVar(&budget.InitialDelay, "initial-delay", budget.InitialDelay, "wait before the first status poll")
	flag.DurationVar(&budget.Interval, "interval", budget.Interval, "wait between status polls")
	flag.IntVar(&budget.MaxAttempts, "max-attempts", budget.MaxAttempts, "status polls before giving up")
	flag.StringVar(&metricsOut, "metrics-out", "", "write poll metrics in text format to this file")
	flag.BoolVar(&asJSON, "json", false, "print the final record as JSON")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <photo>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := infra.NewLogger(envOr("APP_ENV", "development"))
	path := flag.Arg(0)
	image, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("read photo")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	client := poller.NewAPIClient(apiURL, token, nil)
	started := time.Now()
	m := poller.New(client, budget,
		poller.WithMetrics(metrics.New(reg)),
		poller.WithObserver(func(s poller.Snapshot) {
			ev := logger.Info().Str("state", string(s.State)).Dur("elapsed", time.Since(started).Round(time.Millisecond))
			if s.JobID != "" {
				ev = ev.Str("iffy_id", s.JobID)
			}
			if s.Attempts > 0 {
				ev = ev.Int("attempts", s.Attempts)
			}
			if s.Message != "" {
				ev = ev.Str("message", s.Message)
			}
			ev.Msg("job update")
		}),
	)

	snap, err := m.Run(ctx, image, filepath.Base(path))
	if metricsOut != "" {
		if werr := prometheus.WriteToTextfile(metricsOut, reg); werr != nil {
			logger.Warn().Err(werr).Msg("write metrics")
		}
	}
	if err != nil {
		logger.Warn().Err(err).Msg("cancelled; the server keeps processing the job")
		os.Exit(130)
	}
	if snap.State != poller.StateCompleted {
		fmt.Fprintln(os.Stderr, snap.Message)
		os.Exit(1)
	}

	rec, err := client.Get(context.Background(), snap.ResultID)
	if err != nil {
		logger.Fatal().Err(err).Msg("fetch result")
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rec)
		return
	}
	fmt.Printf("%s (%s)\n%s\n%s\n%s\n", rec.GiftName, rec.Brand, rec.Commentary, rec.Humor, rec.GiftImageURL)
	if rec.Link != "" {
		fmt.Println(rec.Link)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
