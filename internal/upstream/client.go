package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/logger"
)

// DefaultTimeout bounds every upstream request when no timeout is configured.
const DefaultTimeout = 8 * time.Second

var (
	// ErrTransient classifies network failures, timeouts and non-2xx statuses.
	ErrTransient = errors.New("upstream temporarily unavailable")
	// ErrMalformedResponse classifies bodies that do not have the expected shape.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// Client reads tickers from the external source.
//
// Fetch never propagates transient failures: it logs them and returns an
// empty slice, which callers must read as "no fresher data right now".
// Structural violations are returned as ErrMalformedResponse.
type Client interface {
	Fetch(ctx context.Context) ([]models.Ticker, error)
	FetchByID(ctx context.Context, id string) (*models.Ticker, error)
}

type client struct {
	http    *resty.Client
	listURL string
	now     func() time.Time
}

// NewClient builds a Client for the list endpoint at listURL
// (e.g. https://api.coinpaprika.com/v1/tickers). The by-id endpoint is
// listURL + "/{id}". A non-positive timeout falls back to DefaultTimeout.
func NewClient(listURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &client{
		http:    rc,
		listURL: strings.TrimRight(listURL, "/"),
		now:     time.Now,
	}
}

// Fetch performs one GET against the list endpoint.
func (c *client) Fetch(ctx context.Context) ([]models.Ticker, error) {
	log := logger.Component(logger.ComponentUpstream)
	start := time.Now()

	resp, err := c.http.R().SetContext(ctx).Get(c.listURL)
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %v", ErrTransient, err)).Msg("fetch failed")
		return []models.Ticker{}, nil
	}
	if !resp.IsSuccess() {
		log.Warn().Int("status", resp.StatusCode()).Err(ErrTransient).Msg("fetch rejected")
		return []models.Ticker{}, nil
	}

	tickers, err := parseTickers(resp.Body(), c.now())
	if err != nil {
		log.Error().Err(err).Msg("fetch returned malformed body")
		return nil, err
	}

	log.Debug().Int("count", len(tickers)).Dur("elapsed", time.Since(start)).Msg("fetch done")
	return tickers, nil
}

// FetchByID returns (nil, nil) when the source answers 404.
func (c *client) FetchByID(ctx context.Context, id string) (*models.Ticker, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.listURL + "/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, nil
	case !resp.IsSuccess():
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode())
	}

	return parseTicker(resp.Body(), c.now())
}
