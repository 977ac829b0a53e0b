package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// Result is the outcome of a catalog load. Err is set when the fetch failed,
// in which case Products is empty.
type Result struct {
	Products []domain.Product
	Err      error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

type Loader struct {
	fetcher port.CatalogFetcher
	logger  *slog.Logger
	timeout time.Duration

	breaker *gobreaker.CircuitBreaker[[]domain.Product]
	sfg     singleflight.Group // concurrent loads share one fetch
}

type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	timeout          time.Duration
	failureThreshold uint32
	openTimeout      time.Duration
}

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) LoaderOption {
	return func(o *loaderOptions) { o.timeout = d }
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(failureThreshold uint32, openTimeout time.Duration) LoaderOption {
	return func(o *loaderOptions) {
		o.failureThreshold = failureThreshold
		o.openTimeout = openTimeout
	}
}

func NewLoader(fetcher port.CatalogFetcher, logger *slog.Logger, opts ...LoaderOption) (*Loader, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := loaderOptions{
		timeout:          10 * time.Second,
		failureThreshold: 3,
		openTimeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	breaker := gobreaker.NewCircuitBreaker[[]domain.Product](gobreaker.Settings{
		Name:    "catalog",
		Timeout: o.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.failureThreshold
		},
		// an abandoned request says nothing about the endpoint
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Loader{
		fetcher: fetcher,
		logger:  logger,
		timeout: o.timeout,
		breaker: breaker,
	}, nil
}

// Load fetches the catalog. It never fails: errors are logged and reported
// through Result.Err with an empty product list. The fetch is shared by
// concurrent callers and is not cancelled when one of them goes away; a caller
// whose ctx ends first gets ctx.Err() while the fetch runs on.
func (l *Loader) Load(ctx context.Context) Result {
	fetchCtx := context.WithoutCancel(ctx)

	ch := l.sfg.DoChan("catalog", func() (interface{}, error) {
		return l.breaker.Execute(func() ([]domain.Product, error) {
			ctx, cancel := context.WithTimeout(fetchCtx, l.timeout)
			defer cancel()

			return l.fetcher.Fetch(ctx)
		})
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}

	if res.Err != nil {
		err := res.Err
		if !errors.Is(err, domain.ErrNetwork) {
			err = fmt.Errorf("%w: %w", domain.ErrNetwork, err)
		}
		l.logger.ErrorContext(ctx, "catalog fetch failed", "error", err)
		return Result{Products: []domain.Product{}, Err: err}
	}

	products, _ := res.Val.([]domain.Product)
	if products == nil {
		products = []domain.Product{}
	}

	l.logger.InfoContext(ctx, "catalog fetched", "products", len(products))
	return Result{Products: products}
}
