package revgeo

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"asset-tracker/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hyderabad = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "properties": {"district": "Hyderabad", "state": "Telangana", "country": "India"},
     "geometry": {"type": "Polygon", "coordinates": [[[78.2,17.2],[78.7,17.2],[78.7,17.6],[78.2,17.6],[78.2,17.2]]]}},
    {"type": "Feature",
     "properties": {"locality": "Gachibowli", "district": "Hyderabad", "state": "Telangana", "country": "India"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[78.30,17.40],[78.40,17.40],[78.40,17.50],[78.30,17.50],[78.30,17.40]],
        [[78.33,17.43],[78.35,17.43],[78.35,17.45],[78.33,17.45],[78.33,17.43]]]
     ]}}
  ]
}`

const places = `[
  {"locality": "Secunderabad", "district": "Hyderabad", "state": "Telangana", "country": "India", "latitude": 17.4399, "longitude": 78.4983},
  {"locality": "Warangal", "state": "Telangana", "country": "India", "latitude": 17.9689, "longitude": 79.5941}
]`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "telangana.geojson"), []byte(hyderabad), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.geojson"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, placesFile), []byte(places), 0o644))
	return dir
}

func TestLoadSnapshot(t *testing.T) {
	snap, err := LoadSnapshot(writeFixture(t))
	require.NoError(t, err)
	assert.Len(t, snap.Regions, 2)
	assert.Len(t, snap.Places, 2)
}

func TestLoadSnapshot_Empty(t *testing.T) {
	_, err := LoadSnapshot(t.TempDir())
	assert.ErrorIs(t, err, ErrEmptySnapshot)
}

func TestOrchestrator_Lookup(t *testing.T) {
	snap, err := LoadSnapshot(writeFixture(t))
	require.NoError(t, err)
	o := NewOrchestrator(snap, Options{RadiusKm: 30})

	m, ok := o.Lookup(geo.Coordinate{Latitude: 17.45, Longitude: 78.38})
	require.True(t, ok)
	assert.False(t, m.Approx)
	assert.Equal(t, "Gachibowli, Hyderabad, Telangana, India", m.Label())

	// 洞内退回到外层区域，再被更细的参考点取代
	m, ok = o.Lookup(geo.Coordinate{Latitude: 17.44, Longitude: 78.34})
	require.True(t, ok)
	assert.True(t, m.Approx)
	assert.Equal(t, "Secunderabad", m.Locality)

	m, ok = o.Lookup(geo.Coordinate{Latitude: 17.97, Longitude: 79.60})
	require.True(t, ok)
	assert.Equal(t, "Warangal, Telangana, India", m.Label())

	_, ok = o.Lookup(geo.Coordinate{Latitude: 12.97, Longitude: 77.59})
	assert.False(t, ok)
}

func TestArea_Label(t *testing.T) {
	assert.Equal(t, "Hyderabad, Telangana", Area{Locality: "Hyderabad", District: "hyderabad", State: "Telangana"}.Label())
	assert.True(t, Area{}.Empty())
}

func TestLRU_EvictionAndTTL(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")
	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestKDTree_MatchesBruteForceAtHighLatitude(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 500; round++ {
		ps := make([]Place, 40)
		for i := range ps {
			ps[i] = Place{
				Area:      Area{Locality: fmt.Sprintf("p%d", i)},
				Latitude:  59 + rng.Float64()*2,
				Longitude: 10 + rng.Float64()*4,
			}
		}
		q := geo.Coordinate{Latitude: 59 + rng.Float64()*2, Longitude: 10 + rng.Float64()*4}

		wantKm := math.Inf(1)
		for _, p := range ps {
			wantKm = math.Min(wantKm, geo.DistanceKm(q, p.coord()))
		}
		tree := buildKD(append([]Place(nil), ps...), 0)
		_, gotKm, ok := tree.nearest(q)
		require.True(t, ok)
		require.InDelta(t, wantKm, gotKm, 1e-9, "round %d", round)
	}
}
