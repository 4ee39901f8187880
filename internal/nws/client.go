// Package nws is a client for the National Weather Service alerts API.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// DefaultBaseURL is the production NWS API root.
const DefaultBaseURL = "https://api.weather.gov"

const acceptGeoJSON = "application/geo+json"

// Client talks to the NWS API. Every request carries the identifying
// client agent the API requires.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an NWS API client.
func NewClient(userAgent string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetBaseURL overrides the API root, for tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

// Get fetches an arbitrary URL with the client's identity headers and the
// given Accept value. Transport failures and non-2xx statuses come back as
// a FetchError.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, error) {
	c.logger.Debug("fetching upstream resource", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &alert.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("upstream fetch failed", zap.String("url", url), zap.Error(err))
		return nil, &alert.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		c.logger.Warn("upstream fetch rejected",
			zap.String("url", url),
			zap.String("status", resp.Status))
		return nil, &alert.FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &alert.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url, acceptGeoJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// PointZone resolves a lat/lon to its county zone identifier.
func (c *Client) PointZone(ctx context.Context, lat, lon float64) (string, error) {
	url := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	var pt pointResponse
	if err := c.getJSON(ctx, url, &pt); err != nil {
		return "", err
	}
	zone := pt.Properties.County
	if zone == "" {
		return "", fmt.Errorf("no county zone for point %.4f,%.4f", lat, lon)
	}
	// The zone may arrive as a full URL; only the ID segment matters.
	if strings.HasPrefix(zone, "http") {
		zone = zone[strings.LastIndex(zone, "/")+1:]
	}
	return zone, nil
}

// ActiveAlerts fetches the active alert collection for a county zone.
func (c *Client) ActiveAlerts(ctx context.Context, zoneID string) (*FeatureCollection, error) {
	return c.ActiveAlertsURL(ctx, fmt.Sprintf("%s/alerts/active?zone=%s", c.baseURL, zoneID))
}

// ActiveAlertsURL fetches an alert feature collection from a prebuilt URL.
func (c *Client) ActiveAlertsURL(ctx context.Context, url string) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := c.getJSON(ctx, url, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// AlertByID fetches the full detail document for one alert.
func (c *Client) AlertByID(ctx context.Context, id string) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := c.getJSON(ctx, c.baseURL+"/alerts/"+id, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// ZoneName resolves a zone URL to its display name.
func (c *Client) ZoneName(ctx context.Context, zoneURL string) (string, error) {
	var z zoneResponse
	if err := c.getJSON(ctx, zoneURL, &z); err != nil {
		return "", err
	}
	return z.Properties.Name, nil
}
