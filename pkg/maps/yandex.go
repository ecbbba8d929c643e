package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courier-assistant/internal/metrics"

	logrus "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	routingEndpoint = "https://api.routing.yandex.net/v2/route"
	geocodeEndpoint = "https://geocode-maps.yandex.ru/1.x/"
)

// YandexClient implements DistanceTimeProvider and Geocoder against the
// Yandex routing and geocoding APIs. Routing failures degrade to a
// straight-line estimate so a single flaky leg does not sink a whole
// optimization; geocoding failures are surfaced to the caller.
type YandexClient struct {
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewYandexClient builds a client; rps bounds outbound request rate.
func NewYandexClient(apiKey string, rps int) *YandexClient {
	if rps <= 0 {
		rps = 5
	}
	return &YandexClient{
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type yandexRouteResponse struct {
	Route struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"route"`
}

// Estimate returns distance and drive time between two points.
func (y *YandexClient) Estimate(ctx context.Context, origin, dest Point) (Estimate, error) {
	if y.apiKey == "" {
		metrics.DistanceLookups.WithLabelValues("fallback").Inc()
		return fallbackEstimate(origin, dest), nil
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return Estimate{}, err
	}

	params := url.Values{}
	params.Set("apikey", y.apiKey)
	params.Set("waypoints", fmt.Sprintf("%f,%f|%f,%f", origin.Lon, origin.Lat, dest.Lon, dest.Lat))
	params.Set("mode", "driving")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routingEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("maps.Estimate build request: %w", err)
	}

	resp, err := y.http.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("routing API unreachable, using straight-line estimate")
		metrics.DistanceLookups.WithLabelValues("fallback").Inc()
		return fallbackEstimate(origin, dest), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logrus.WithField("status", resp.StatusCode).Warn("routing API error, using straight-line estimate")
		metrics.DistanceLookups.WithLabelValues("fallback").Inc()
		return fallbackEstimate(origin, dest), nil
	}

	var out yandexRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Estimate{}, fmt.Errorf("maps.Estimate decode: %w", err)
	}
	if out.Route.Distance == 0 && out.Route.Duration == 0 {
		metrics.DistanceLookups.WithLabelValues("fallback").Inc()
		return fallbackEstimate(origin, dest), nil
	}

	metrics.DistanceLookups.WithLabelValues("provider").Inc()
	return Estimate{
		DistanceKm: out.Route.Distance / 1000,
		Minutes:    out.Route.Duration / 60,
	}, nil
}

type yandexGeocodeResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Point struct {
						Pos string `json:"pos"` // "lon lat"
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// Geocode resolves an address to coordinates.
func (y *YandexClient) Geocode(ctx context.Context, address string) (Point, error) {
	if y.apiKey == "" {
		return Point{}, ErrAddressNotFound
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	params := url.Values{}
	params.Set("apikey", y.apiKey)
	params.Set("format", "json")
	params.Set("geocode", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geocodeEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("maps.Geocode build request: %w", err)
	}

	resp, err := y.http.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("maps.Geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("maps.Geocode: status %d", resp.StatusCode)
	}

	var out yandexGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Point{}, fmt.Errorf("maps.Geocode decode: %w", err)
	}

	members := out.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return Point{}, ErrAddressNotFound
	}

	var lon, lat float64
	pos := strings.TrimSpace(members[0].GeoObject.Point.Pos)
	if _, err := fmt.Sscanf(pos, "%f %f", &lon, &lat); err != nil {
		return Point{}, fmt.Errorf("maps.Geocode parse pos %q: %w", pos, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
