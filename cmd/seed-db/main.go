package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		customers    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (default: bundled catalog)")
	flag.StringVar(&customers, "customers", "", `comma-separated "name <email>" demo customers`)
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

	if err := run(ctx, lg, databaseURL, productsFile, customers); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile, customers string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data := db.SeedProducts
	if productsFile != "" {
		lg.Info("Reading products file", zap.String("path", productsFile))
		if data, err = os.ReadFile(productsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	products, err := catalog.Decode(data)
	if err != nil {
		return err
	}
	if err := catalog.Seed(ctx, repository.NewProductRepository(pool), products); err != nil {
		return err
	}
	lg.Info("Upserted products", zap.Int("count", len(products)))

	svc := customer.NewService(repository.NewCustomerRepository(pool))
	for _, entry := range splitCustomers(customers) {
		c, err := svc.Create(ctx, entry)
		switch {
		case apperr.KindOf(err) == apperr.KindConflict:
			lg.Info("Customer exists", zap.String("email", entry.Email))
		case err != nil:
			return errors.Wrapf(err, "create customer %s", entry.Email)
		default:
			lg.Info("Created customer", zap.String("id", c.ID), zap.String("email", c.Email))
		}
	}
	return nil
}

// splitCustomers parses `Ana <ana@example.com>, bob@example.com`. A bare
// address uses its local part as the name.
func splitCustomers(s string) []customer.CreateRequest {
	var out []customer.CreateRequest
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rest, ok := strings.Cut(part, "<")
		if !ok {
			local, _, _ := strings.Cut(part, "@")
			out = append(out, customer.CreateRequest{Name: local, Email: part})
			continue
		}
		out = append(out, customer.CreateRequest{
			Name:  strings.TrimSpace(name),
			Email: strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ">")),
		})
	}
	return out
}
