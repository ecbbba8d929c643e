package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courier-assistant/internal/metrics"

	"github.com/redis/go-redis/v9"
	logrus "github.com/sirupsen/logrus"
)

// CachingClient decorates a provider/geocoder pair with a Redis cache.
// Cache errors are treated as misses; the upstream is the source of truth.
type CachingClient struct {
	provider DistanceTimeProvider
	geocoder Geocoder
	rdb      *redis.Client
	distTTL  time.Duration
	geoTTL   time.Duration
}

// NewCachingClient wraps provider and geocoder with the given Redis client.
func NewCachingClient(provider DistanceTimeProvider, geocoder Geocoder, rdb *redis.Client, distTTL, geoTTL time.Duration) *CachingClient {
	return &CachingClient{
		provider: provider,
		geocoder: geocoder,
		rdb:      rdb,
		distTTL:  distTTL,
		geoTTL:   geoTTL,
	}
}

func distKey(origin, dest Point) string {
	return "route:" + origin.Key() + "|" + dest.Key()
}

func geoKey(address string) string {
	return "geocode:" + address
}

// Estimate returns a cached leg estimate or asks the wrapped provider.
func (c *CachingClient) Estimate(ctx context.Context, origin, dest Point) (Estimate, error) {
	key := distKey(origin, dest)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var est Estimate
		if json.Unmarshal(raw, &est) == nil {
			metrics.DistanceLookups.WithLabelValues("cache").Inc()
			return est, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logrus.WithError(err).Warn("distance cache read failed")
	}

	est, err := c.provider.Estimate(ctx, origin, dest)
	if err != nil {
		return Estimate{}, err
	}

	if raw, err := json.Marshal(est); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.distTTL).Err(); err != nil {
			logrus.WithError(err).Warn("distance cache write failed")
		}
	}
	return est, nil
}

// Geocode returns cached coordinates or asks the wrapped geocoder.
// Only successful resolutions are cached.
func (c *CachingClient) Geocode(ctx context.Context, address string) (Point, error) {
	key := geoKey(address)
	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var p Point
		if _, serr := fmt.Sscanf(raw, "%f,%f", &p.Lat, &p.Lon); serr == nil {
			return p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logrus.WithError(err).Warn("geocode cache read failed")
	}

	p, err := c.geocoder.Geocode(ctx, address)
	if err != nil {
		return Point{}, err
	}

	val := fmt.Sprintf("%f,%f", p.Lat, p.Lon)
	if err := c.rdb.Set(ctx, key, val, c.geoTTL).Err(); err != nil {
		logrus.WithError(err).Warn("geocode cache write failed")
	}
	return p, nil
}
