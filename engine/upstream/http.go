package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/pkg/fn"
	"github.com/WessleyAI/carviewer/pkg/resilience"
)

// HTTP paths served by the catalog API.
const (
	PathCars          = "/api/cars"
	PathManufacturers = "/api/manufacturers"
	PathCategories    = "/api/categories"
)

// HTTPOpts configures HTTPClient.
type HTTPOpts struct {
	BaseURL string
	// Timeout bounds each request attempt. Default 10s.
	Timeout time.Duration
	Retry   fn.RetryOpts
	Breaker *resilience.Breaker
	Limiter *resilience.Limiter
	// Transport overrides the base round tripper; it is always wrapped with otelhttp.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// HTTPClient fetches the catalog from the catalog API over HTTP.
type HTTPClient struct {
	base    string
	client  *http.Client
	retry   fn.RetryOpts
	breaker *resilience.Breaker
	limiter *resilience.Limiter
	log     *slog.Logger
}

var _ Source = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTP source.
func NewHTTPClient(opts HTTPOpts) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = fn.DefaultRetry
	}
	if opts.Retry.Retryable == nil {
		opts.Retry.Retryable = retryable
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HTTPClient{
		base: strings.TrimRight(opts.BaseURL, "/"),
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
		},
		retry:   opts.Retry,
		breaker: opts.Breaker,
		limiter: opts.Limiter,
		log:     opts.Logger,
	}
}

func (c *HTTPClient) FetchCars(ctx context.Context) ([]catalog.Car, error) {
	return getJSON[[]catalog.Car](ctx, c, OpCars, 0, PathCars)
}

func (c *HTTPClient) FetchCarByID(ctx context.Context, id int) (catalog.Car, error) {
	return getJSON[catalog.Car](ctx, c, OpCar, id, PathCars+"/"+strconv.Itoa(id))
}

func (c *HTTPClient) FetchManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	return getJSON[[]catalog.Manufacturer](ctx, c, OpManufacturers, 0, PathManufacturers)
}

func (c *HTTPClient) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	return getJSON[[]catalog.Category](ctx, c, OpCategories, 0, PathCategories)
}

// getJSON runs one GET through the limiter, the breaker and the retry loop.
func getJSON[T any](ctx context.Context, c *HTTPClient, op string, id int, path string) (T, error) {
	var zero T
	url := c.base + path

	attempt := func(ctx context.Context) fn.Result[T] {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fn.Err[T](fn.Permanent(err))
			}
		}
		if c.breaker == nil {
			return doGet[T](ctx, c.client, op, id, url)
		}
		return resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[T] {
			return doGet[T](ctx, c.client, op, id, url)
		})
	}

	v, err := fn.Retry(ctx, c.retry, attempt).Unwrap()
	if err != nil {
		c.log.Warn("upstream fetch failed", "op", op, "id", id, "url", url, "err", err)
		return zero, WrapFetch(op, id, err)
	}
	return v, nil
}

func doGet[T any](ctx context.Context, client *http.Client, op string, id int, url string) fn.Result[T] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fn.Err[T](fn.Permanent(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fn.Err[T](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fe := &FetchError{Op: op, ID: id, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
		if resp.StatusCode == http.StatusNotFound {
			fe.Err = ErrNotFound
		}
		return fn.Err[T](fe)
	}

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return fn.Err[T](fn.Permanent(&FetchError{Op: op, ID: id, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}))
	}
	return fn.Ok(v)
}

// retryable retries transport errors and 5xx/429 answers. Client errors
// and an open breaker are final.
func retryable(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Status != 0 {
		return fe.Status >= 500 || fe.Status == http.StatusTooManyRequests
	}
	return true
}

// IsBenign reports errors that do not indicate an unhealthy upstream, for
// use as a breaker's IsSuccessful classifier.
func IsBenign(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Status >= 400 && fe.Status < 500 {
		return true
	}
	return errors.Is(err, ErrNotFound)
}
