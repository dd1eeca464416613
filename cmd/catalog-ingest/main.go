package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing stock feeds")
	flag.StringVar(&pattern, "pattern", "stock*.gz", "glob of feed files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, filepath.Join(dataDir, pattern), databaseURL); err != nil {
		lg.Fatal("Stock ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, glob, databaseURL string) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, "glob feeds")
	}
	if len(files) == 0 {
		return errors.Errorf("no feeds match %s", glob)
	}
	lg.Info("Ingesting stock feeds", zap.Strings("files", files))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	products := repository.NewProductRepository(pool)
	report, err := catalog.NewStockIngester(products, lg).Ingest(ctx, files)
	if err != nil {
		return err
	}

	lg.Info("Stock ingest completed",
		zap.Int("lines", report.Lines),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("unknown", len(report.Unknown)),
	)
	if len(report.Unknown) > 0 {
		lg.Warn("Feeds reference unknown products", zap.Strings("ids", report.Unknown))
	}
	return nil
}
