// Package extract talks to the backends that turn a video link into raw
// metadata: the yt-dlp binary, the native YouTube client and a plain page
// scraper for login-gated posts.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Extractor returns raw metadata for url. A nil or empty record with a nil
// error means the backend found nothing.
type Extractor interface {
	Extract(ctx context.Context, url string) (Record, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, url string) (Record, error)

func (f Func) Extract(ctx context.Context, url string) (Record, error) {
	return f(ctx, url)
}

// Named attaches a name used in chain error messages and logs.
type Named struct {
	Name string
	Extractor
}

// Chain tries each extractor in order and returns the first non-empty record.
type Chain struct {
	Steps  []Named
	Logger *zap.Logger
}

// NewChain builds a chain from named steps.
func NewChain(log *zap.Logger, steps ...Named) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{Steps: steps, Logger: log}
}

func (c *Chain) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Extract implements Extractor. When every step fails the errors are
// aggregated; when every step comes back empty the result is empty.
func (c *Chain) Extract(ctx context.Context, url string) (Record, error) {
	if len(c.Steps) == 0 {
		return nil, errors.New("extract: empty chain")
	}
	var merr *multierror.Error
	for _, step := range c.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := step.Extract(ctx, url)
		if err != nil {
			c.logger().Debug("extractor failed", zap.String("extractor", step.Name), zap.String("url", url), zap.Error(err))
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		if len(rec) > 0 {
			return rec, nil
		}
		c.logger().Debug("extractor returned nothing", zap.String("extractor", step.Name), zap.String("url", url))
	}
	return nil, merr.ErrorOrNil()
}
