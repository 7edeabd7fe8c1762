// Package keepalive periodically requests a URL so a sleeping host stays
// warm. Each ping is logged; failures are not retried.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Result is the outcome of a single ping.
type Result struct {
	Status  int
	Latency time.Duration
}

// Pinger sends GET requests to a fixed URL.
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      *zap.Logger
	onPing   func(Result, error)
}

// Option configures a Pinger.
type Option func(*Pinger)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(p *Pinger) { p.client = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pinger) { p.log = l }
}

// WithPingCallback sets a function called after every ping.
func WithPingCallback(fn func(Result, error)) Option {
	return func(p *Pinger) { p.onPing = fn }
}

// New validates the target and interval and returns a Pinger.
func New(target string, interval time.Duration, opts ...Option) (*Pinger, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}

	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	p := &Pinger{
		url:      target,
		interval: interval,
		client:   &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = zap.NewNop()
	}

	return p, nil
}

// Ping sends one request and logs its outcome.
func (p *Pinger) Ping(ctx context.Context) (Result, error) {
	res, err := p.send(ctx)

	if err != nil {
		p.log.Warn("ping failed",
			zap.String("url", p.url), zap.Int("status", res.Status),
			zap.Duration("latency", res.Latency), zap.Error(err))
	} else {
		p.log.Info("ping ok",
			zap.String("url", p.url), zap.Int("status", res.Status), zap.Duration("latency", res.Latency))
	}

	if p.onPing != nil {
		p.onPing(res, err)
	}

	return res, err
}

func (p *Pinger) send(ctx context.Context) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building ping request: %w", err)
	}

	start := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Latency: time.Since(start)}, fmt.Errorf("requesting %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	res := Result{Status: resp.StatusCode, Latency: time.Since(start)}

	if resp.StatusCode >= http.StatusBadRequest {
		return res, fmt.Errorf("%w: %d", ErrUnhealthyStatus, resp.StatusCode)
	}

	return res, nil
}

// Run pings immediately and then once per interval until ctx is done.
// Ping failures are logged and do not stop the loop.
func (p *Pinger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("keep-alive started", zap.String("url", p.url), zap.Duration("interval", p.interval))

	for {
		_, _ = p.Ping(ctx)

		select {
		case <-ctx.Done():
			p.log.Info("keep-alive stopped", zap.String("url", p.url))

			return nil
		case <-ticker.C:
		}
	}
}
