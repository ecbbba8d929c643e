package maps

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// countingProvider wraps the mock provider and counts upstream hits.
type countingProvider struct {
	*MockProvider
	estimates int
	geocodes  int
}

func (p *countingProvider) Estimate(ctx context.Context, origin, dest Point) (Estimate, error) {
	p.estimates++
	return p.MockProvider.Estimate(ctx, origin, dest)
}

func (p *countingProvider) Geocode(ctx context.Context, address string) (Point, error) {
	p.geocodes++
	return p.MockProvider.Geocode(ctx, address)
}

func newCacheFixture(t *testing.T) (*CachingClient, *countingProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	upstream := &countingProvider{MockProvider: NewMockProvider([]MockLeg{
		{
			From:       Point{Lat: 55.75, Lon: 37.61},
			To:         Point{Lat: 55.76, Lon: 37.62},
			DistanceKm: 5,
			Minutes:    15,
		},
	})}
	upstream.AddAddress("Moscow, Tverskaya 1", Point{Lat: 55.757, Lon: 37.611})

	return NewCachingClient(upstream, upstream, rdb, time.Hour, time.Hour), upstream, mr
}

func TestCachingClientEstimate(t *testing.T) {
	client, upstream, _ := newCacheFixture(t)
	ctx := context.Background()
	origin := Point{Lat: 55.75, Lon: 37.61}
	dest := Point{Lat: 55.76, Lon: 37.62}

	first, err := client.Estimate(ctx, origin, dest)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	second, err := client.Estimate(ctx, origin, dest)
	if err != nil {
		t.Fatalf("Estimate (cached): %v", err)
	}
	if first != second {
		t.Fatalf("cached estimate %+v differs from original %+v", second, first)
	}
	if upstream.estimates != 1 {
		t.Fatalf("upstream hit %d times, want 1", upstream.estimates)
	}
}

func TestCachingClientEstimateExpiry(t *testing.T) {
	client, upstream, mr := newCacheFixture(t)
	ctx := context.Background()
	origin := Point{Lat: 55.75, Lon: 37.61}
	dest := Point{Lat: 55.76, Lon: 37.62}

	if _, err := client.Estimate(ctx, origin, dest); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := client.Estimate(ctx, origin, dest); err != nil {
		t.Fatalf("Estimate after expiry: %v", err)
	}
	if upstream.estimates != 2 {
		t.Fatalf("upstream hit %d times, want 2 after TTL expiry", upstream.estimates)
	}
}

func TestCachingClientGeocode(t *testing.T) {
	client, upstream, _ := newCacheFixture(t)
	ctx := context.Background()

	first, err := client.Geocode(ctx, "Moscow, Tverskaya 1")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	second, err := client.Geocode(ctx, "Moscow, Tverskaya 1")
	if err != nil {
		t.Fatalf("Geocode (cached): %v", err)
	}
	if first != second {
		t.Fatalf("cached point %+v differs from original %+v", second, first)
	}
	if upstream.geocodes != 1 {
		t.Fatalf("upstream hit %d times, want 1", upstream.geocodes)
	}
}

func TestCachingClientGeocodeMissNotCached(t *testing.T) {
	client, upstream, _ := newCacheFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.Geocode(ctx, "nowhere"); err != ErrAddressNotFound {
			t.Fatalf("Geocode miss %d: err = %v, want ErrAddressNotFound", i, err)
		}
	}
	if upstream.geocodes != 2 {
		t.Fatalf("upstream hit %d times, want 2; failures must not be cached", upstream.geocodes)
	}
}
