// Package sentry fetches the NASA/JPL Sentry impact-risk summary and decodes it
// into threat snapshots.
package sentry

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/http2"

	"asentry/config"
	"asentry/threat"
)

// Client performs one GET per FetchSnapshot call. It never retries; callers
// decide what a failure means.
type Client struct {
	http    *resty.Client
	baseURL string
	psMin   string
	logger  *log.Logger
	now     func() time.Time
}

// NewClient builds a client over an HTTP/2-capable transport.
func NewClient(cfg config.SentryConfig, logger *log.Logger) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        2,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil && logger != nil {
		logger.Printf("Sentry: HTTP/2 unavailable, using HTTP/1.1: %v", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	client := resty.NewWithClient(&http.Client{Transport: transport})
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		http:    client,
		baseURL: cfg.BaseURL,
		psMin:   strconv.FormatFloat(cfg.PSMin, 'f', -1, 64),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FetchSnapshot downloads the current catalog restricted to objects at or
// above the configured Palermo threshold.
func (c *Client) FetchSnapshot(ctx context.Context) (threat.Snapshot, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ps-min", c.psMin).
		Get(c.baseURL)
	if err != nil {
		return threat.Snapshot{}, &FetchError{URL: c.baseURL, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return threat.Snapshot{}, &FetchError{
			URL:    c.baseURL,
			Status: resp.StatusCode(),
			Reason: resp.Status(),
		}
	}
	body := resp.Body()
	snap, err := Decode(body, c.now())
	if err != nil {
		return threat.Snapshot{}, err
	}
	if c.logger != nil {
		c.logger.Printf("Sentry: fetched %s objects (%s, digest %016x) in %s",
			humanize.Comma(int64(snap.Len())), humanize.Bytes(uint64(len(body))), snap.Digest, resp.Time().Round(time.Millisecond))
	}
	return snap, nil
}
