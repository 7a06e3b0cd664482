// Package main seeds a running storefront with wishlist entries for the
// first products of its catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/storefront/internal/storefront"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

// envPrefix scopes the seeder's variables, e.g. SEED_COUNT.
const envPrefix = "SEED_"

type seedConfig struct {
	BaseURL string        `env:"STOREFRONT_URL" envDefault:"http://localhost:5000"`
	Count   int           `env:"COUNT" envDefault:"5"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"1m"`
}

func (c seedConfig) validate() error {
	if c.Count < 0 {
		return fmt.Errorf("invalid %sCOUNT: %d", envPrefix, c.Count)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid %sTIMEOUT: %s", envPrefix, c.Timeout)
	}
	return nil
}

func main() {
	log := logger.NewWithWriter("storefront-seed", "info", os.Stderr)
	if err := run(log, nil); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run seeds the storefront. environ overrides the process environment when
// non-nil.
func run(log *slog.Logger, environ map[string]string) error {
	opts := []pkgconfig.Option{pkgconfig.WithPrefix(envPrefix)}
	if environ != nil {
		opts = append(opts, pkgconfig.WithEnvironment(environ))
	}

	var cfg seedConfig
	if err := pkgconfig.Load(&cfg, opts...); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client := storefront.NewClient(cfg.BaseURL, nil)

	products, err := client.Products(ctx)
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}
	if cfg.Count < len(products) {
		products = products[:cfg.Count]
	}

	added := 0
	for _, p := range products {
		// The API does not deduplicate, so skip what is already wishlisted.
		exists, err := client.Check(ctx, p.SelectedProduct)
		if rejected(err) {
			log.Warn("product id rejected", slog.String("product_id", p.SelectedProduct), slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return fmt.Errorf("check %s: %w", p.SelectedProduct, err)
		}
		if exists {
			log.Info("already wishlisted", slog.String("product_id", p.SelectedProduct))
			continue
		}

		id, err := client.Add(ctx, p.SelectedProduct)
		if rejected(err) {
			log.Warn("product id rejected", slog.String("product_id", p.SelectedProduct), slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return fmt.Errorf("add %s: %w", p.SelectedProduct, err)
		}
		added++
		log.Info("wishlisted",
			slog.String("product_id", p.SelectedProduct),
			slog.String("name", p.Name),
			slog.String("entry_id", id),
		)
	}

	log.Info("seed complete", slog.Int("added", added), slog.Int("considered", len(products)))
	return nil
}

// rejected reports whether the API refused the request as a client error.
func rejected(err error) bool {
	var statusErr *httpclient.StatusError
	return errors.As(err, &statusErr) && httpclient.IsClientError(statusErr.StatusCode)
}
