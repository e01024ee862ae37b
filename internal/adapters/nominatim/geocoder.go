// Package nominatim resolves coordinates to addresses using the
// OpenStreetMap Nominatim reverse endpoint.
package nominatim

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
)

const providerName = "nominatim"

// Config configures a Geocoder.
type Config struct {
	URL       string // base URL, e.g. https://nominatim.openstreetmap.org
	UserAgent string
	Timeout   time.Duration
}

// Geocoder implements ports.Geocoder. The one client is shared by all requests.
type Geocoder struct {
	http *http.Client
	cfg  Config
}

// New creates a Geocoder.
func New(httpClient *http.Client, cfg Config) *Geocoder {
	return &Geocoder{http: httpClient, cfg: cfg}
}

// Reverse returns the display name for p. Any failure is returned as an
// error; callers substitute p.Label().
func (g *Geocoder) Reverse(ctx context.Context, p domain.GeoPoint) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	q.Set("format", "json")
	reqURL := strings.TrimRight(g.cfg.URL, "/") + "/reverse?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(providerName, "exhausted").Inc()
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues(providerName, "rejected").Inc()
		return "", fmt.Errorf("reverse geocode: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		metrics.ProviderRequests.WithLabelValues(providerName, "exhausted").Inc()
		return "", fmt.Errorf("reverse geocode: invalid JSON")
	}

	name := strings.TrimSpace(gjson.GetBytes(body, "display_name").String())
	if name == "" {
		metrics.ProviderRequests.WithLabelValues(providerName, "empty").Inc()
		return "", fmt.Errorf("reverse geocode: no display_name")
	}
	metrics.ProviderRequests.WithLabelValues(providerName, "ok").Inc()
	return name, nil
}
