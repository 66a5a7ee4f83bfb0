package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_ZeroIsMissing(t *testing.T) {
	assert.Nil(t, From(34, 0))
	assert.Nil(t, From(0, 78.38))
	assert.Nil(t, From(math.NaN(), 78.38))
	c := From(17.45, 78.38)
	require.NotNil(t, c)
	assert.Equal(t, 17.45, c.Latitude)
}

func TestCoordinate_String(t *testing.T) {
	assert.Equal(t, "17.45, 78.38", Coordinate{17.45, 78.38}.String())
	assert.Equal(t, "-33.8688, 151.2093", Coordinate{-33.8688, 151.2093}.String())
}

func TestParseDegrees(t *testing.T) {
	v, ok := ParseDegrees("17.385")
	assert.True(t, ok)
	assert.Equal(t, 17.385, v)
	_, ok = ParseDegrees("")
	assert.False(t, ok)
	_, ok = ParseDegrees("north")
	assert.False(t, ok)
}

func TestGeohash_KnownValue(t *testing.T) {
	// 57.64911, 10.40744 is the canonical example for "u4pruydqqvj"
	assert.Equal(t, "u4pruyd", Geohash(Coordinate{57.64911, 10.40744}, 7))
	assert.Len(t, Geohash(Coordinate{17.45, 78.38}, 0), 7)
}

func TestDistanceKm(t *testing.T) {
	d := DistanceKm(Coordinate{17.385, 78.4867}, Coordinate{17.45, 78.38})
	assert.InDelta(t, 13.5, d, 1.0)
}
