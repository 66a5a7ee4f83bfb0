package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// gatedGeocoder blocks each lookup until the test releases that coordinate
type gatedGeocoder struct {
	mu    sync.Mutex
	gates map[string]chan result
	calls int
}

type result struct {
	addr string
	err  error
}

func newGated() *gatedGeocoder { return &gatedGeocoder{gates: map[string]chan result{}} }

func (g *gatedGeocoder) gate(lat, lon string) chan result {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := lat + "," + lon
	ch, ok := g.gates[k]
	if !ok {
		ch = make(chan result, 1)
		g.gates[k] = ch
	}
	return ch
}

// ReverseGeocode ignores ctx on purpose: a slow backend may answer after cancellation
func (g *gatedGeocoder) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	r := <-g.gate(lat, lon)
	return r.addr, r.err
}

func (g *gatedGeocoder) release(lat, lon, addr string, err error) {
	g.gate(lat, lon) <- result{addr, err}
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	args := m.Called(lat, lon)
	return args.String(0), args.Error(1)
}

type nopCenter struct {
	mu  sync.Mutex
	got []geo.Coordinate
}

func (n *nopCenter) CenterOn(c geo.Coordinate, d time.Duration) {
	n.mu.Lock()
	n.got = append(n.got, c)
	n.mu.Unlock()
}

func asset(id string, lat, lon float64) registry.Asset {
	return registry.Asset{ID: id, Location: geo.From(lat, lon)}
}

func settled(r *Resolver, id string) func() bool {
	return func() bool {
		s := r.Current()
		return s.Phase == PhaseResolved && s.Asset != nil && s.Asset.ID == id
	}
}

func TestResolver_LastSelectWins(t *testing.T) {
	g := newGated()
	r := NewResolver(g, &nopCenter{}, 0)

	r.Select(asset("A", 17.1, 78.1))
	r.Select(asset("B", 17.2, 78.2))
	assert.Equal(t, PhasePending, r.Current().Phase)
	assert.Equal(t, "B", r.Current().Asset.ID)

	g.release("17.2", "78.2", "Banjara Hills", nil)
	require.Eventually(t, settled(r, "B"), time.Second, 5*time.Millisecond)
	g.release("17.1", "78.1", "Ameerpet", nil)
	r.Wait()

	s := r.Current()
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Equal(t, "B", s.Asset.ID, "no flicker back to A")
	require.NotNil(t, s.Address)
	assert.Equal(t, "Banjara Hills", *s.Address)
}

func TestResolver_StaleResultDiscardedEvenWhenFirst(t *testing.T) {
	g := newGated()
	r := NewResolver(g, nil, 0)

	r.Select(asset("A", 17.1, 78.1))
	r.Select(asset("B", 17.2, 78.2))
	g.release("17.1", "78.1", "Ameerpet", nil)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhasePending, r.Current().Phase)
	assert.Equal(t, "B", r.Current().Asset.ID)

	g.release("17.2", "78.2", "Banjara Hills", nil)
	r.Wait()
	assert.Equal(t, "Banjara Hills", *r.Current().Address)
}

func TestResolver_GeocodeFailureResolvesWithoutAddress(t *testing.T) {
	g := new(MockGeocoder)
	g.On("ReverseGeocode", "17.45", "78.38").Return("", errors.New("quota exceeded"))
	c := &nopCenter{}
	r := NewResolver(g, c, 0)

	r.Select(asset("9", 17.45, 78.38))
	r.Wait()
	s := r.Current()
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Equal(t, "9", s.Asset.ID)
	assert.Nil(t, s.Address)
	require.Len(t, c.got, 1)
	assert.Equal(t, geo.Coordinate{Latitude: 17.45, Longitude: 78.38}, c.got[0])
}

func TestResolver_BlankAddressIsAbsent(t *testing.T) {
	g := new(MockGeocoder)
	g.On("ReverseGeocode", "17.45", "78.38").Return("  ", nil)
	r := NewResolver(g, nil, 0)
	r.Select(asset("9", 17.45, 78.38))
	r.Wait()
	assert.Nil(t, r.Current().Address)
}

func TestResolver_NoCoordinateResolvesSynchronously(t *testing.T) {
	g := new(MockGeocoder)
	c := &nopCenter{}
	r := NewResolver(g, c, 0)

	r.Select(registry.Asset{ID: "7"})
	s := r.Current()
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Equal(t, "7", s.Asset.ID)
	assert.Nil(t, s.Address)
	g.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything)
	assert.Empty(t, c.got)
}

func TestResolver_ClearDiscardsInFlight(t *testing.T) {
	g := newGated()
	r := NewResolver(g, nil, 0)
	r.Select(asset("A", 17.1, 78.1))
	r.Clear()
	assert.Equal(t, PhaseNone, r.Current().Phase)

	g.release("17.1", "78.1", "Ameerpet", nil)
	r.Wait()
	assert.Equal(t, Selection{}, r.Current())
}

func TestResolver_FocusSupersedesPending(t *testing.T) {
	g := newGated()
	r := NewResolver(g, nil, 0)
	r.Select(asset("A", 17.1, 78.1))
	r.Focus(asset("9", 17.45, 78.38))

	g.release("17.1", "78.1", "Ameerpet", nil)
	r.Wait()
	s := r.Current()
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Equal(t, "9", s.Asset.ID)
	assert.Nil(t, s.Address)
}

func TestResolver_CloseStopsWrites(t *testing.T) {
	g := newGated()
	r := NewResolver(g, nil, 0)
	r.Select(asset("A", 17.1, 78.1))
	before := r.Current()

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()
	g.release("17.1", "78.1", "Ameerpet", nil)
	<-done

	assert.Equal(t, before, r.Current())
	r.Select(asset("B", 17.2, 78.2))
	assert.Equal(t, before, r.Current())
}
