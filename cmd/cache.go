package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// cachedOps are the key namespaces cleared when no prefix is given. Session records are never included.
var cachedOps = []string{"spotify.", "search:"}

// CacheClear drops cached catalog and search responses.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if r.cache == nil {
		return fmt.Errorf("%w: no cache configured", shared.ErrMissingConfig)
	}

	prefixes := cachedOps
	if p := cmd.String("prefix"); p != "" {
		prefixes = []string{p}
	}

	total := 0
	for _, p := range prefixes {
		n, err := r.cache.Clear(ctx, cache.KeyPrefix+p)
		if errors.Is(err, shared.ErrNotImplemented) {
			return fmt.Errorf("cache backend %q cannot clear by prefix: %w", r.config.Cache.Backend, err)
		}
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", p, err)
		}
		r.logger.Debug("cleared cache prefix", "prefix", p, "count", n)
		total += n
	}

	return r.writePlain("✓ Cleared %d cached entries\n", total)
}
