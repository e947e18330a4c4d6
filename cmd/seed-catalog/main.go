package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/soch-storefront/internal/domain/catalog"
	"github.com/xenking/soch-storefront/internal/storage/file"
	"github.com/xenking/soch-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file, optionally .gz (default: embedded catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	var (
		products []catalog.Product
		pool     *pgxpool.Pool
	)

	// Parsing a large compressed catalog and migrating the schema are
	// independent.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := loadCatalog(catalogFile)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		products, err = c.List(gctx)
		return err
	})
	g.Go(func() error {
		slog.Info("connecting to database")

		p, err := postgres.NewPool(gctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		pool = p

		slog.Info("running migrations")
		return errors.Wrap(postgres.RunMigrations(gctx, pool), "run migrations")
	})
	err := g.Wait()
	if pool != nil {
		defer pool.Close()
	}
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	repo := postgres.NewProductRepository(pool)
	if err := repo.Upsert(ctx, products); err != nil {
		return errors.Wrap(err, "upsert products")
	}

	for _, p := range products {
		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.String("kind", string(p.Kind())),
		)
	}
	return nil
}

func loadCatalog(path string) (*file.Catalog, error) {
	if path == "" {
		slog.Info("reading embedded catalog")
		return file.Embedded()
	}
	slog.Info("reading catalog file", slog.String("path", path))
	return file.Open(path)
}
