// Command enricher runs one enrichment query from the command line and writes
// the results as CSV or JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/Artufe/bravo-tango-bravo/internal/app"
	"github.com/Artufe/bravo-tango-bravo/internal/cache"
	"github.com/Artufe/bravo-tango-bravo/internal/config"
	"github.com/Artufe/bravo-tango-bravo/internal/database"
	"github.com/Artufe/bravo-tango-bravo/internal/enrich"
	"github.com/Artufe/bravo-tango-bravo/internal/export"
	"github.com/Artufe/bravo-tango-bravo/internal/logger"
	"github.com/Artufe/bravo-tango-bravo/internal/repository"
	"github.com/Artufe/bravo-tango-bravo/internal/service/importer"
)

type options struct {
	sector   string
	location string
	csvPath  string
	out      string
	format   string
	save     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.sector, "sector", "", "business sector to search for, e.g. \"Mortgage broker\"")
	flag.StringVar(&opts.location, "location", "", "place to search around, e.g. \"Brighton\"")
	flag.StringVar(&opts.csvPath, "csv", "", "enrich the companies of this CSV instead of searching")
	flag.StringVar(&opts.out, "out", "", "output file (default stdout)")
	flag.StringVar(&opts.format, "format", "long", "output format: long, short or json")
	flag.BoolVar(&opts.save, "save", false, "persist the run to DATABASE_URL")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "enricher: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	req, err := buildRequest(opts, cfg.Enrich.PhoneRegion)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appOpts := app.Options{}

	if opts.save {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		appOpts.Store = repository.NewPGXLeadsRepository(pool)
	}

	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		appOpts.Redis = redisClient
	}

	missingSites, err := app.OpenMissingSites(cfg.Enrich.MissingSitesFile)
	if err != nil {
		return err
	}
	if missingSites != nil {
		defer missingSites.Close()
		appOpts.MissingSites = missingSites
	}

	pipeline, err := app.NewPipeline(cfg, log, appOpts)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := pipeline.Enrich(ctx, req)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	log.Info("run finished",
		zap.String("query_id", result.Query.ID.String()),
		zap.Int("maps_results", result.Query.MapsResults),
		zap.Int("search_results", result.Query.SearchResults),
		zap.Duration("took", time.Since(start)))

	return writeResult(opts, result)
}

func buildRequest(opts options, region string) (enrich.Request, error) {
	if opts.csvPath == "" {
		req := enrich.Request{Sector: opts.sector, Location: opts.location}
		return req, req.Validate()
	}

	f, err := os.Open(opts.csvPath)
	if err != nil {
		return enrich.Request{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	companies, _, err := importer.ParseCompanies(f, region)
	if err != nil {
		return enrich.Request{}, err
	}
	return enrich.Request{Sector: opts.sector, Location: opts.location, Companies: companies}, nil
}

func writeResult(opts options, result *enrich.Result) error {
	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.format == "json" {
		return export.WriteJSON(w, result.Companies)
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, result.Companies, format)
}
