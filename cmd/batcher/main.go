// Command batcher runs jobs on a bounded worker pool.
//
// Usage:
//
//	batcher scrape [options] <query>   # scrape search listings into a CSV file
//	batcher sum [options]              # run the sum self-test
//	batcher version                    # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/afs"
	"github.com/viant/batcher"
	"github.com/viant/batcher/listing"
	"github.com/viant/batcher/model/job"
	"github.com/viant/batcher/progress"
	"github.com/viant/batcher/service/action/web"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "scrape":
		err = runScrape(os.Args[2:])
	case "sum":
		err = runSum(os.Args[2:])
	case "version":
		fmt.Printf("batcher %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `batcher - bounded worker pool with ordered results

Usage:
  batcher scrape [options] <query>   scrape search listings into a CSV file
  batcher sum [options]              run the sum self-test
  batcher version                    print version

Run "batcher <command> -h" for command options.
`)
}

// commonFlags are shared by all pool commands
type commonFlags struct {
	defaultWorkers int
	config         *string
	workers        *int
	logLevel       *string
	metricsAddr    *string
}

func registerCommon(fs *flag.FlagSet, defaultWorkers int) *commonFlags {
	return &commonFlags{
		defaultWorkers: defaultWorkers,
		config:         fs.String("config", "", "YAML config URL (any afs location)"),
		workers:        fs.Int("workers", 0, fmt.Sprintf("number of workers, overrides config; 0 keeps the config value or %d without config", defaultWorkers)),
		logLevel:       fs.String("log-level", "info", "log level: debug, info, warn, error"),
		metricsAddr:    fs.String("metrics", "", "address serving Prometheus metrics, e.g. :9090"),
	}
}

// loadConfig resolves pool configuration: -workers wins over the config file,
// the command default applies only without a config file
func (c *commonFlags) loadConfig(ctx context.Context, fs afs.Service) (*batcher.Config, error) {
	config := batcher.DefaultConfig()
	config.Workers = c.defaultWorkers
	if *c.config != "" {
		loaded, err := batcher.LoadConfig(ctx, fs, *c.config)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if *c.workers > 0 {
		config.Workers = *c.workers
	}
	if *c.metricsAddr != "" {
		config.Metrics.Enabled = true
	}
	return config, nil
}

func (c *commonFlags) newBatcher(ctx context.Context, logger *zap.Logger, options ...batcher.Option) (*batcher.Batcher, error) {
	config, err := c.loadConfig(ctx, afs.New())
	if err != nil {
		return nil, err
	}
	if *c.metricsAddr != "" {
		go serveMetrics(*c.metricsAddr, logger)
	}
	options = append([]batcher.Option{batcher.WithLogger(logger)}, options...)
	return batcher.NewFromConfig(ctx, config, options...)
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config := zap.NewProductionConfig()
	if zapLevel == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	return config.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScrape(args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	common := registerCommon(fs, 32)
	output := fs.String("out", "out.csv", "CSV output URL (any afs location)")
	maxPages := fs.Int("max-pages", listing.DefaultConfig().MaxPages, "maximum number of result pages")
	retries := fs.Int("retries", listing.DefaultConfig().Retries, "fetch attempts per page")
	rateLimit := fs.Float64("rate", 0, "maximum requests per second, 0 disables limiting")
	urlTemplate := fs.String("url", listing.DefaultURLTemplate, "search URL template (query, page)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one search query, got %d arguments", fs.NArg())
	}
	query := fs.Arg(0)

	logger, err := newLogger(*common.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	var options []batcher.Option
	if *rateLimit > 0 {
		options = append(options, batcher.WithWebOptions(web.WithRateLimit(*rateLimit, 1)))
	}
	options = append(options, batcher.WithProgressListener(progressLogger(logger)))
	b, err := common.newBatcher(ctx, logger, options...)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close(context.Background()) }()

	writer := listing.NewCSVWriter(afs.New(), *output)
	scraper := listing.NewScraper(b, writer, listing.WithLogger(logger), listing.WithConfig(listing.Config{
		URLTemplate: *urlTemplate,
		MaxPages:    *maxPages,
		BatchSize:   b.Workers(),
		Retries:     *retries,
	}))
	started := time.Now()
	summary, err := scraper.Run(ctx, query)
	if summary != nil {
		logger.Info("scrape finished",
			zap.String("query", summary.Query),
			zap.Int("pages", summary.Pages),
			zap.Int("listings", summary.Listings),
			zap.Bool("exhausted", summary.Exhausted),
			zap.String("output", *output),
			zap.Duration("elapsed", time.Since(started)))
	}
	return err
}

func runSum(args []string) error {
	fs := flag.NewFlagSet("sum", flag.ExitOnError)
	common := registerCommon(fs, 4)
	jobs := fs.Int("jobs", 16, "number of jobs, job i computes sum(1,2,3,4,5,i)")
	_ = fs.Parse(args)

	logger, err := newLogger(*common.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	b, err := common.newBatcher(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close(context.Background()) }()

	for i := 0; i < *jobs; i++ {
		b.EnqueueJob(job.Named("math/sum", []int{1, 2, 3, 4, 5, i}))
	}
	results, err := b.Process(ctx)
	if err != nil {
		return err
	}
	if err := results.Err(); err != nil {
		return err
	}
	fmt.Println(results.Values()...)
	return nil
}

// progressLogger logs every tenth finished job and the end of each batch
func progressLogger(logger *zap.Logger) func(progress.Progress) {
	return func(p progress.Progress) {
		done := p.CompletedJobs + p.FailedJobs
		if p.TotalJobs == 0 || (p.RunningJobs != 0 && done%10 != 0) {
			return
		}
		logger.Debug("progress",
			zap.Int("batches", p.Batches),
			zap.Int("completed", p.CompletedJobs),
			zap.Int("failed", p.FailedJobs),
			zap.Int("running", p.RunningJobs))
	}
}
