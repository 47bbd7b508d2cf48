package tui

import (
	"context"
	"log/slog"

	"cinebook-cli/model"
	"cinebook-cli/store"
)

type productSource interface {
	GetProducts(ctx context.Context) ([]model.Product, error)
}

// cachedCatalog serves the product list from the on-disk cache while it is
// fresh and falls back to stale data when the API is unreachable.
type cachedCatalog struct {
	source productSource
	logger *slog.Logger
}

func newCachedCatalog(source productSource, logger *slog.Logger) cachedCatalog {
	return cachedCatalog{source: source, logger: logger}
}

func (c cachedCatalog) Products(ctx context.Context) ([]model.Product, error) {
	cached, fresh, cacheErr := store.LoadProductCache()
	if cacheErr == nil && fresh && len(cached) > 0 {
		return cached, nil
	}

	products, err := c.source.GetProducts(ctx)
	if err == nil && len(products) > 0 {
		if saveErr := store.SaveProductCache(products); saveErr != nil {
			c.logger.Warn("save product cache", "err", saveErr)
		}
		return products, nil
	}
	if cacheErr == nil && len(cached) > 0 {
		c.logger.Warn("serving stale product cache", "err", err)
		return cached, nil
	}
	return products, err
}
