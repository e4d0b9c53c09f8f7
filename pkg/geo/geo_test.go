package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineM_SamePoint(t *testing.T) {
	p := Point{Lat: 6.5244, Lng: 3.3792}
	assert.Equal(t, 0.0, HaversineM(p, p))
}

func TestHaversineM_KnownDistance(t *testing.T) {
	// Ikeja to CMS, Lagos: roughly 17 km
	ikeja := Point{Lat: 6.6018, Lng: 3.3515}
	cms := Point{Lat: 6.4531, Lng: 3.3958}
	d := HaversineM(ikeja, cms)
	assert.InDelta(t, 17_250, d, 1_500)
}

func TestWithin(t *testing.T) {
	bus := Point{Lat: 6.5244, Lng: 3.3792}

	// 0.0005 deg of latitude is about 55 m
	near, d := Within(bus, Point{Lat: 6.5249, Lng: 3.3792}, NearbyThresholdM)
	assert.True(t, near)
	assert.InDelta(t, 55.6, d, 1)

	// 0.002 deg is about 222 m
	near, _ = Within(bus, Point{Lat: 6.5264, Lng: 3.3792}, NearbyThresholdM)
	assert.False(t, near)
}

func TestRouteLengthM(t *testing.T) {
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 0.001}
	c := Point{Lat: 0, Lng: 0.002}

	assert.InDelta(t, HaversineM(a, c), RouteLengthM([]Point{a, b, c}), 0.01)
	assert.Equal(t, 0.0, RouteLengthM([]Point{a}))
	assert.Equal(t, 0.0, RouteLengthM(nil))
}
