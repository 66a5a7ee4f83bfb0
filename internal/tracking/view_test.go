package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"asset-tracker/internal/backend"
	"asset-tracker/internal/geo"
	"asset-tracker/internal/locate"
	"asset-tracker/internal/registry"
	"asset-tracker/internal/selection"
	"asset-tracker/internal/viewport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, token string) ([]backend.Record, error)

func (f fetchFunc) FetchAssets(ctx context.Context, token string) ([]backend.Record, error) {
	return f(ctx, token)
}

type geocodeFunc func(ctx context.Context, lat, lon string) (string, error)

func (g geocodeFunc) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	return g(ctx, lat, lon)
}

func recs(t *testing.T, s string) []backend.Record {
	t.Helper()
	var out []backend.Record
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

const fleet = `[
  {"ambulance":{"id":"9","name":"KA-01"},"driver":{"name":"Ravi"}},
  {"ambulance":{"id":"3","status":"active"},"driver":{},"location":{"latitude":17.44,"longitude":78.35}}
]`

var self = geo.Coordinate{Latitude: 17.40, Longitude: 78.47}

func newView(t *testing.T, f registry.Fetcher, g selection.Geocoder) (*View, *viewport.Recorder) {
	t.Helper()
	rec := viewport.NewRecorder(0)
	v := New(Deps{
		Device:   &locate.StaticDevice{Permission: true, Service: true, Position: self},
		Fetcher:  f,
		Geocoder: g,
		Surface:  rec,
		Options:  Options{LocateTimeout: time.Second, Animate: 300 * time.Millisecond},
	})
	t.Cleanup(v.Unmount)
	return v, rec
}

func centered(rec *viewport.Recorder, c geo.Coordinate) bool {
	for _, cmd := range rec.History() {
		if cmd.Region.Center == c {
			return true
		}
	}
	return false
}

func TestView_MountAcquiresAndFetches(t *testing.T) {
	v, rec := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		return recs(t, fleet), nil
	}), nil)

	require.NoError(t, v.Mount(context.Background(), nil))
	v.WaitIdle()

	assert.Equal(t, locate.State{Phase: locate.PhaseReady, Coordinate: self}, v.SelfLocation())
	assert.True(t, centered(rec, self))
	assert.Len(t, v.Assets(), 2)
	markers := v.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "3", markers[0].ID)
	assert.Nil(t, v.Notice())
	assert.ErrorIs(t, v.Mount(context.Background(), nil), ErrAlreadyMounted)
}

func TestView_FocusMergeScenario(t *testing.T) {
	v, rec := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		return recs(t, fleet), nil
	}), nil)
	require.NoError(t, v.Mount(context.Background(), nil))
	v.WaitIdle()

	name := "KA-01"
	a, err := v.Focus(registry.FocusRequest{ID: "9", Name: &name, Lat: 17.45, Lon: 78.38})
	require.NoError(t, err)

	var nines []registry.Asset
	for _, x := range v.Assets() {
		if x.ID == "9" {
			nines = append(nines, x)
		}
	}
	require.Len(t, nines, 1)
	require.NotNil(t, nines[0].Location)
	assert.Equal(t, geo.Coordinate{Latitude: 17.45, Longitude: 78.38}, *nines[0].Location)
	assert.Equal(t, registry.StatusActive, nines[0].Status)

	s := v.Selection()
	assert.Equal(t, selection.PhaseResolved, s.Phase)
	assert.Equal(t, a.ID, s.Asset.ID)
	assert.Nil(t, s.Address)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, geo.Coordinate{Latitude: 17.45, Longitude: 78.38}, last.Region.Center)
	assert.Equal(t, viewport.DefaultLatitudeDelta, last.Region.LatitudeDelta)
}

func TestView_DeepLinkSurvivesLateFetch(t *testing.T) {
	release := make(chan struct{})
	v, _ := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		<-release
		return recs(t, fleet), nil
	}), nil)

	focus, ok := registry.ParseFocus(map[string][]string{"markId": {"9"}, "markLat": {"17.45"}, "markLon": {"78.38"}})
	require.True(t, ok)
	require.NoError(t, v.Mount(context.Background(), &focus))
	close(release)
	v.WaitIdle()

	got, ok := v.registryAsset("9")
	require.True(t, ok)
	require.NotNil(t, got.Location)
	assert.Len(t, v.Markers(), 2)
}

func (v *View) registryAsset(id string) (registry.Asset, bool) { return v.registry.Get(id) }

func TestView_FetchFailureIsANotice(t *testing.T) {
	fail := true
	v, _ := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		if fail {
			return nil, &backend.StatusError{Code: 502}
		}
		return recs(t, fleet), nil
	}), nil)
	require.NoError(t, v.Mount(context.Background(), nil))
	v.WaitIdle()

	n := v.Notice()
	require.NotNil(t, n)
	assert.Equal(t, NoticeFetchFailed, n.Kind)
	assert.Empty(t, v.Markers())
	assert.ErrorIs(t, v.Select("3"), ErrUnknownAsset)

	fail = false
	require.NoError(t, v.Refresh())
	assert.Nil(t, v.Notice())
	assert.Len(t, v.Markers(), 1)
}

func TestView_SelectResolvesAddress(t *testing.T) {
	v, rec := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		return recs(t, fleet), nil
	}), geocodeFunc(func(ctx context.Context, lat, lon string) (string, error) {
		if lat == "17.44" && lon == "78.35" {
			return "Gachibowli, Hyderabad", nil
		}
		return "", errors.New("unexpected")
	}))
	require.NoError(t, v.Mount(context.Background(), nil))
	v.WaitIdle()

	require.NoError(t, v.Select("3"))
	v.WaitSelection()
	s := v.Selection()
	assert.Equal(t, selection.PhaseResolved, s.Phase)
	require.NotNil(t, s.Address)
	assert.Equal(t, "Gachibowli, Hyderabad", *s.Address)
	assert.True(t, centered(rec, geo.Coordinate{Latitude: 17.44, Longitude: 78.35}))

	require.NoError(t, v.Select("9"))
	s = v.Selection()
	assert.Equal(t, "9", s.Asset.ID)
	assert.Nil(t, s.Address)
	assert.ErrorIs(t, v.CenterOnSelected(), ErrNothingSelected)

	require.NoError(t, v.ClearSelection())
	assert.Equal(t, selection.PhaseNone, v.Selection().Phase)
}

func TestView_CenterOnSelected(t *testing.T) {
	v, rec := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		return recs(t, fleet), nil
	}), nil)
	require.NoError(t, v.Mount(context.Background(), nil))
	v.WaitIdle()
	require.NoError(t, v.Select("3"))
	v.WaitSelection()

	before := len(rec.History())
	require.NoError(t, v.CenterOnSelected())
	assert.Len(t, rec.History(), before+1)
}

func TestView_UnmountStopsBackgroundWork(t *testing.T) {
	rec := viewport.NewRecorder(0)
	fetched := make(chan struct{})
	v := New(Deps{
		Device: &locate.StaticDevice{Permission: true, Service: true, Position: self, FixDelay: time.Hour},
		Fetcher: fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
			close(fetched)
			<-ctx.Done()
			return recs(t, fleet), nil
		}),
		Surface: rec,
		Options: Options{LocateTimeout: time.Hour},
	})
	require.NoError(t, v.Mount(context.Background(), nil))
	<-fetched
	v.Unmount()

	assert.Equal(t, locate.PhaseLoading, v.SelfLocation().Phase)
	assert.Empty(t, v.Assets())
	assert.Empty(t, rec.History())
	assert.Nil(t, v.Notice())
	assert.ErrorIs(t, v.Select("3"), ErrNotMounted)
	_, err := v.Focus(registry.FocusRequest{ID: "1", Lat: 1, Lon: 1})
	assert.ErrorIs(t, err, ErrNotMounted)
	v.Unmount()
}

func TestView_UnmountWaitsForUserRefresh(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	v, _ := newView(t, fetchFunc(func(ctx context.Context, _ string) ([]backend.Record, error) {
		calls++
		if calls == 2 {
			close(inFlight)
			<-release
		}
		return recs(t, fleet), nil
	}), nil)
	require.NoError(t, v.Mount(context.Background(), nil))
	v.WaitIdle()

	refreshed := make(chan error, 1)
	go func() { refreshed <- v.Refresh() }()
	<-inFlight

	unmounted := make(chan struct{})
	go func() {
		v.Unmount()
		close(unmounted)
	}()
	assert.Never(t, func() bool {
		select {
		case <-unmounted:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond, "unmount must wait for the in-flight refresh")

	close(release)
	<-unmounted
	assert.ErrorIs(t, <-refreshed, context.Canceled)
	assert.Empty(t, v.Assets())
	assert.Empty(t, v.Markers())
}
