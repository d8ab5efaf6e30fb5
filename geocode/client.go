// Package geocode provides a client for the Google Geocoding API, used to
// resolve free-text addresses to coordinates when the browser does not
// supply them.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"salestracker/config"
)

// ErrNoMatch reports that the provider found no match for the address.
var ErrNoMatch = errors.New("no geocoding match found")

// ErrTimeout reports that the provider did not respond within the bounded
// timeout.
var ErrTimeout = errors.New("geocoding request timed out")

// Point is a resolved geographic coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// geocodeParams are the url query parameters of a geocoding request.
type geocodeParams struct {
	Address string `url:"address"`
	Key     string `url:"key"`
}

// geocodeResponse is the subset of the provider response this client needs.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client is a wrapper for making calls to the geocoding provider.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	timeout    time.Duration
	log        *slog.Logger
}

// NewClient returns a geocoding client configured from the application
// config. The per-request timeout bounds the whole call including body
// reading.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Geocoder.Timeout},
		endpoint:   cfg.Geocoder.Endpoint,
		apiKey:     cfg.Geocoder.APIKey,
		timeout:    cfg.Geocoder.Timeout,
		log:        logger,
	}
}

// Geocode resolves a free-text address to a Point. It returns ErrNoMatch
// when the provider has no result, ErrTimeout when the bounded timeout is
// exceeded, and a wrapped service error otherwise. Calls are never retried.
func (c *Client) Geocode(ctx context.Context, address string) (Point, error) {

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params, err := query.Values(geocodeParams{Address: address, Key: c.apiKey})
	if err != nil {
		return Point{}, fmt.Errorf("geocode parameter encoding error: %w", err)
	}
	requestURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to create geocode request: %w", err)
	}

	var response geocodeResponse
	if err := c.do(req, &response); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn(fmt.Sprintf("geocoding timed out for address %q", address))
			return Point{}, ErrTimeout
		}
		c.log.Warn(fmt.Sprintf("geocoding error for address %q: %v", address, err))
		return Point{}, err
	}

	switch response.Status {
	case "OK":
	case "ZERO_RESULTS":
		c.log.Info(fmt.Sprintf("no geocoding match for address %q", address))
		return Point{}, ErrNoMatch
	default:
		c.log.Warn(fmt.Sprintf("geocoding service status %q for address %q", response.Status, address))
		return Point{}, fmt.Errorf("geocoding service error: status %s", response.Status)
	}
	if len(response.Results) == 0 {
		return Point{}, ErrNoMatch
	}

	location := response.Results[0].Geometry.Location
	c.log.Info(fmt.Sprintf("geocoded %q to (%f, %f)", address, location.Lat, location.Lng))
	return Point{Latitude: location.Lat, Longitude: location.Lng}, nil
}

// do is a helper to execute an HTTP request and decode the JSON response.
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("geocoding API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
