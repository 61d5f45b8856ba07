package upstream

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/carviewer/pkg/config"
	"github.com/WessleyAI/carviewer/pkg/fn"
	"github.com/WessleyAI/carviewer/pkg/metrics"
	"github.com/WessleyAI/carviewer/pkg/resilience"
)

// Source modes accepted by FromConfig.
const (
	ModeHTTP   = "http"
	ModeNATS   = "nats"
	ModeStatic = "static"
)

// ErrNoConnection is returned for the nats mode without a connection.
var ErrNoConnection = errors.New("upstream: nats mode needs a connection")

// NewHTTPFromConfig builds the HTTP source with its breaker, limiter and
// retry policy taken from cfg. Breaker transitions are exported to m.
func NewHTTPFromConfig(cfg config.UpstreamConfig, m *metrics.Metrics, log *slog.Logger) *HTTPClient {
	breaker := resilience.NewBreaker(resilience.BreakerOpts{
		Name:          "upstream-http",
		FailThreshold: cfg.BreakerThreshold,
		Timeout:       cfg.BreakerTimeout,
		HalfOpenMax:   1,
		IsSuccessful:  IsBenign,
		OnStateChange: func(name string, from, to resilience.State) {
			m.SetBreakerState(name, int(to))
			if log != nil {
				log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	retry := fn.DefaultRetry
	retry.MaxAttempts = cfg.Retries
	return NewHTTPClient(HTTPOpts{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Retry:   retry,
		Breaker: breaker,
		Limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.RateLimit, Burst: cfg.Burst}),
		Logger:  log,
	})
}

// FromConfig returns the instrumented source for the http or nats mode.
// The static mode has no remote side; callers build upstream.Static themselves.
func FromConfig(cfg config.UpstreamConfig, nc *nats.Conn, m *metrics.Metrics, log *slog.Logger) (Source, error) {
	var src Source
	switch cfg.Mode {
	case ModeHTTP:
		src = NewHTTPFromConfig(cfg, m, log)
	case ModeNATS:
		if nc == nil {
			return nil, ErrNoConnection
		}
		src = NewNATSClient(nc, cfg.Timeout)
	default:
		return nil, fmt.Errorf("upstream: unsupported mode %q", cfg.Mode)
	}
	return Instrument(src, cfg.Mode, m), nil
}
