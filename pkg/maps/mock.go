package maps

import (
	"context"
	"fmt"
)

// MockLeg fixes the estimate for one ordered point pair.
type MockLeg struct {
	From, To   Point
	DistanceKm float64
	Minutes    float64
}

// MockProvider serves fixed estimates for tests and offline runs.
type MockProvider struct {
	legs      map[string]Estimate
	addresses map[string]Point
}

func NewMockProvider(legs []MockLeg) *MockProvider {
	m := make(map[string]Estimate, len(legs))
	for _, l := range legs {
		m[l.From.Key()+"|"+l.To.Key()] = Estimate{DistanceKm: l.DistanceKm, Minutes: l.Minutes}
	}
	return &MockProvider{legs: m, addresses: map[string]Point{}}
}

// AddAddress registers a geocodable address.
func (p *MockProvider) AddAddress(address string, pt Point) {
	p.addresses[address] = pt
}

func (p *MockProvider) Estimate(_ context.Context, origin, dest Point) (Estimate, error) {
	est, ok := p.legs[origin.Key()+"|"+dest.Key()]
	if !ok {
		return Estimate{}, fmt.Errorf("mock provider: missing leg %s -> %s", origin.Key(), dest.Key())
	}
	return est, nil
}

func (p *MockProvider) Geocode(_ context.Context, address string) (Point, error) {
	pt, ok := p.addresses[address]
	if !ok {
		return Point{}, ErrAddressNotFound
	}
	return pt, nil
}
