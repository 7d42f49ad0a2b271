// Package service implements the likes and comments operations on top of the
// store.
package service

import (
	"context"
	"log/slog"
)

const (
	likesCollection    = "likes"
	commentsCollection = "comments"
)

// A CountCache caches per subject record counts. Implementations report a
// miss with ok set to false.
type CountCache interface {
	Count(ctx context.Context, collection, name string) (n int, ok bool, err error)
	SetCount(ctx context.Context, collection, name string, n int) error
	Invalidate(ctx context.Context, collection, name string) error
}

type countFunc func(ctx context.Context, name string) (int, error)

// cachedCount reads a count through the cache. Cache failures are logged and
// the count is served from the store.
func cachedCount(ctx context.Context, cache CountCache, logger *slog.Logger, collection, name string, count countFunc) (int, error) {
	if cache != nil {
		n, ok, err := cache.Count(ctx, collection, name)
		if err != nil {
			logger.Error("Could not read cached count", "collection", collection, "error", err.Error())
		} else if ok {
			return n, nil
		}
	}

	n, err := count(ctx, name)
	if err != nil {
		return 0, internal("count "+collection, err)
	}

	if cache != nil {
		if err := cache.SetCount(ctx, collection, name, n); err != nil {
			logger.Error("Could not cache count", "collection", collection, "error", err.Error())
		}
	}
	return n, nil
}

func invalidateCount(ctx context.Context, cache CountCache, logger *slog.Logger, collection, name string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, collection, name); err != nil {
		logger.Error("Could not invalidate cached count", "collection", collection, "error", err.Error())
	}
}
