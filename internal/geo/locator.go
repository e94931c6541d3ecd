// Package geo refreshes the configured coordinates from an IP geolocation
// service.
package geo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/httputil"
	"github.com/lox/solarwall/internal/metrics"
	"github.com/lox/solarwall/internal/models"
)

const (
	DefaultEndpoint = "https://ipapi.co/json/"
	providerName    = "ipapi"
)

// LocationStore persists looked-up coordinates and the lookup audit trail.
type LocationStore interface {
	SetLocation(lat, lon float64) error
	StartLocationLookup(provider string) (*models.LocationLookup, error)
	CompleteLocationLookup(lookup *models.LocationLookup) error
}

type Locator struct {
	client     *http.Client
	endpoint   string
	store      LocationStore
	logger     zerolog.Logger
	maxElapsed time.Duration

	mu      sync.Mutex
	running bool
}

func New(store LocationStore, logger zerolog.Logger) *Locator {
	return &Locator{
		client:     httputil.NewClient(),
		endpoint:   DefaultEndpoint,
		store:      store,
		logger:     logger.With().Str("component", "geo").Logger(),
		maxElapsed: 2 * time.Minute,
	}
}

func (l *Locator) SetEndpoint(url string) {
	l.endpoint = url
}

// SetMaxElapsed bounds the total time spent retrying one lookup.
func (l *Locator) SetMaxElapsed(d time.Duration) {
	l.maxElapsed = d
}

type ipapiResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Lookup returns the coordinates of the caller's public IP address and the
// HTTP status of the final attempt.
func (l *Locator) Lookup(ctx context.Context) (lat, lon float64, status int, err error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch location: %w", err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch location: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("fetch location: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = l.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return 0, 0, status, err
	}

	var data ipapiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, 0, status, fmt.Errorf("unmarshal: %w", err)
	}
	if data.Error {
		return 0, 0, status, fmt.Errorf("location service: %s", data.Reason)
	}
	if data.Latitude == nil || data.Longitude == nil {
		return 0, 0, status, errors.New("location service returned no coordinates")
	}
	return *data.Latitude, *data.Longitude, status, nil
}

// Refresh looks up the current location, stores it and records the lookup.
func (l *Locator) Refresh(ctx context.Context) error {
	start := time.Now()
	lookup, err := l.store.StartLocationLookup(providerName)
	if err != nil {
		l.logger.Warn().Err(err).Msg("failed to record location lookup")
	}

	lat, lon, status, err := l.Lookup(ctx)
	metrics.LocationLookupLatency.Observe(time.Since(start).Seconds())
	if lookup != nil && status != 0 {
		lookup.HTTPStatus = sql.NullInt64{Int64: int64(status), Valid: true}
	}
	if err == nil {
		err = l.store.SetLocation(lat, lon)
	}

	if err != nil {
		metrics.LocationLookupsTotal.WithLabelValues("error").Inc()
		if lookup != nil {
			lookup.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			l.complete(lookup)
		}
		return err
	}

	metrics.LocationLookupsTotal.WithLabelValues("success").Inc()
	if lookup != nil {
		lookup.Success = true
		lookup.Latitude = sql.NullFloat64{Float64: lat, Valid: true}
		lookup.Longitude = sql.NullFloat64{Float64: lon, Valid: true}
		l.complete(lookup)
	}
	l.logger.Info().Float64("lat", lat).Float64("lon", lon).Msg("location updated")
	return nil
}

func (l *Locator) complete(lookup *models.LocationLookup) {
	if err := l.store.CompleteLocationLookup(lookup); err != nil {
		l.logger.Warn().Err(err).Msg("failed to complete location lookup record")
	}
}

// RefreshAsync starts Refresh in the background unless one is already
// running. It reports whether a refresh was started.
func (l *Locator) RefreshAsync(ctx context.Context) bool {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return false
	}
	l.running = true
	l.mu.Unlock()

	go func() {
		defer func() {
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
		}()
		if err := l.Refresh(ctx); err != nil {
			l.logger.Warn().Err(err).Msg("location refresh failed")
		}
	}()
	return true
}
