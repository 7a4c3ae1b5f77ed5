package balancer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/lbdns/internal/dns/domain"
)

type MockGeoLocator struct {
	mock.Mock
}

func (m *MockGeoLocator) Locate(ctx context.Context, addr string) (domain.Coordinates, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(domain.Coordinates), args.Error(1)
}

type MockLoadReporter struct {
	mock.Mock
}

func (m *MockLoadReporter) Loads(ctx context.Context) ([]float64, error) {
	args := m.Called(ctx)
	loads, _ := args.Get(0).([]float64)
	return loads, args.Error(1)
}

// staticLocator answers from a fixed table.
type staticLocator map[string]domain.Coordinates

func (s staticLocator) Locate(_ context.Context, addr string) (domain.Coordinates, error) {
	c, ok := s[addr]
	if !ok {
		return domain.Coordinates{}, errors.New("unknown address " + addr)
	}
	return c, nil
}

func newPool(t *testing.T, addrs ...string) *domain.BackendPool {
	t.Helper()
	pool, err := domain.NewBackendPool(addrs)
	require.NoError(t, err)
	return pool
}

func TestRoundRobin_Cycles(t *testing.T) {
	pool := newPool(t, "A", "B", "C")
	rr := RoundRobin{}
	assert.Equal(t, domain.PolicyRoundRobin, rr.Name())

	var got []string
	for i := 0; i < 4; i++ {
		addr, err := rr.Select(context.Background(), pool)
		require.NoError(t, err)
		got = append(got, addr)
	}
	assert.Equal(t, []string{"A", "B", "C", "A"}, got)
}

func TestRoundRobin_SingleBackend(t *testing.T) {
	pool := newPool(t, "10.0.0.5")
	for i := 0; i < 3; i++ {
		addr, err := RoundRobin{}.Select(context.Background(), pool)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.5", addr)
	}
}

func TestGeoProximity_PicksNearest(t *testing.T) {
	// 500 km due north of the reference along a meridian
	north500 := 500 / EarthRadiusKm * 180 / math.Pi

	tests := []struct {
		name  string
		order []string
	}{
		{"near first", []string{"10.0.0.1", "10.0.0.2"}},
		{"near last", []string{"10.0.0.2", "10.0.0.1"}},
	}
	locator := staticLocator{
		"192.0.2.1": {Latitude: 10, Longitude: 20},
		"10.0.0.1":  {Latitude: 10, Longitude: 20},
		"10.0.0.2":  {Latitude: 10 + north500, Longitude: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeoProximity(locator, "192.0.2.1")
			require.NoError(t, err)
			addr, err := g.Select(context.Background(), newPool(t, tt.order...))
			require.NoError(t, err)
			assert.Equal(t, "10.0.0.1", addr)
		})
	}
	assert.InDelta(t, 500, Haversine(locator["10.0.0.1"], locator["10.0.0.2"]), 1e-6)
}

func TestGeoProximity_TieKeepsPoolOrder(t *testing.T) {
	locator := staticLocator{
		"ref": {Latitude: 0, Longitude: 0},
		"a":   {Latitude: 0, Longitude: 1},
		"b":   {Latitude: 0, Longitude: -1},
	}
	g, err := NewGeoProximity(locator, "ref")
	require.NoError(t, err)

	addr, err := g.Select(context.Background(), newPool(t, "b", "a"))
	require.NoError(t, err)
	assert.Equal(t, "b", addr)
}

func TestGeoProximity_LocatorFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("reference", func(t *testing.T) {
		m := &MockGeoLocator{}
		m.On("Locate", ctx, "ref").Return(domain.Coordinates{}, errors.New("unreachable"))
		g, err := NewGeoProximity(m, "ref")
		require.NoError(t, err)

		_, err = g.Select(ctx, newPool(t, "a"))
		assert.ErrorIs(t, err, domain.ErrSelection)
		assert.ErrorContains(t, err, "unreachable")
	})

	t.Run("backend", func(t *testing.T) {
		m := &MockGeoLocator{}
		m.On("Locate", ctx, "ref").Return(domain.Coordinates{}, nil)
		m.On("Locate", ctx, "a").Return(domain.Coordinates{}, nil)
		m.On("Locate", ctx, "b").Return(domain.Coordinates{}, errors.New("missing fields"))
		g, err := NewGeoProximity(m, "ref")
		require.NoError(t, err)

		_, err = g.Select(ctx, newPool(t, "a", "b"))
		assert.ErrorIs(t, err, domain.ErrSelection)
		assert.ErrorContains(t, err, "b")
	})
}

func TestNewGeoProximity_Validation(t *testing.T) {
	_, err := NewGeoProximity(nil, "ref")
	assert.Error(t, err)
	_, err = NewGeoProximity(staticLocator{}, "")
	assert.Error(t, err)
}

func TestHaversine(t *testing.T) {
	berlin := domain.Coordinates{Latitude: 52.5200, Longitude: 13.4050}
	paris := domain.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

	assert.InDelta(t, 877.5, Haversine(berlin, paris), 5)
	assert.InDelta(t, Haversine(berlin, paris), Haversine(paris, berlin), 1e-9)
	assert.Zero(t, Haversine(berlin, berlin))

	antipode := Haversine(domain.Coordinates{}, domain.Coordinates{Longitude: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, antipode, 1e-6)
}

func TestLeastLoad(t *testing.T) {
	tests := []struct {
		name    string
		loads   []float64
		want    string
		wantErr bool
	}{
		{"strict minimum", []float64{0.9, 0.1, 0.5}, "B", false},
		{"tie takes first", []float64{0.7, 0.2, 0.2}, "B", false},
		{"all equal", []float64{1, 1, 1}, "A", false},
		{"too few values", []float64{0.1, 0.2}, "", true},
		{"too many values", []float64{0.1, 0.2, 0.3, 0.4}, "", true},
		{"no values", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			rep := &MockLoadReporter{}
			rep.On("Loads", ctx).Return(tt.loads, nil)

			l, err := NewLeastLoad(rep)
			require.NoError(t, err)
			assert.Equal(t, domain.PolicyLoad, l.Name())

			got, err := l.Select(ctx, newPool(t, "A", "B", "C"))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrSelection)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeastLoad_ReporterError(t *testing.T) {
	ctx := context.Background()
	rep := &MockLoadReporter{}
	rep.On("Loads", ctx).Return(nil, errors.New("no such file"))

	l, err := NewLeastLoad(rep)
	require.NoError(t, err)
	_, err = l.Select(ctx, newPool(t, "A"))
	assert.ErrorIs(t, err, domain.ErrSelection)

	_, err = NewLeastLoad(nil)
	assert.Error(t, err)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(domain.PolicyRoundRobin, PolicyOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyRoundRobin, p.Name())

	p, err = NewPolicy(domain.PolicyGeo, PolicyOptions{Locator: staticLocator{}, Reference: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyGeo, p.Name())

	p, err = NewPolicy(domain.PolicyLoad, PolicyOptions{Reporter: &MockLoadReporter{}})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyLoad, p.Name())

	_, err = NewPolicy(domain.PolicyGeo, PolicyOptions{})
	assert.Error(t, err)

	_, err = NewPolicy(domain.Policy(42), PolicyOptions{})
	assert.ErrorIs(t, err, domain.ErrUnknownPolicy)
}

func TestPickPolicy(t *testing.T) {
	first := func(int) int { return 0 }
	last := func(n int) int { return n - 1 }

	p, err := PickPolicy([]string{"geo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyGeo, p)

	p, err = PickPolicy([]string{"round", "load"}, first)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyRoundRobin, p)

	p, err = PickPolicy([]string{"round", "load"}, last)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyLoad, p)

	_, err = PickPolicy([]string{"round", "fastest"}, first)
	assert.ErrorIs(t, err, domain.ErrUnknownPolicy)

	_, err = PickPolicy(nil, first)
	assert.ErrorIs(t, err, domain.ErrUnknownPolicy)
}

func TestArgmin(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"single", []float64{1}, 0},
		{"last smallest", []float64{3, 2, 1}, 2},
		{"tie takes first", []float64{3, -1, -1}, 1},
		{"nan first", []float64{nan, 5, 2}, 2},
		{"nan between", []float64{4, nan, 1}, 2},
		{"all nan", []float64{nan, nan}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, argmin(tt.values))
		})
	}
}

func TestGeoProximity_AntipodeBeforeSameSpot(t *testing.T) {
	locator := staticLocator{
		"192.0.2.1": {Latitude: 10, Longitude: 20},
		"10.0.0.1":  {Latitude: -10, Longitude: -160},
		"10.0.0.2":  {Latitude: 10, Longitude: 20},
	}
	g, err := NewGeoProximity(locator, "192.0.2.1")
	require.NoError(t, err)

	addr, err := g.Select(context.Background(), newPool(t, "10.0.0.1", "10.0.0.2"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", addr)
}

func TestHaversine_AntipodesAreFinite(t *testing.T) {
	for lat := -90.0; lat <= 90; lat += 7.5 {
		for lon := -180.0; lon <= 180; lon += 7.5 {
			a := domain.Coordinates{Latitude: lat, Longitude: lon}
			b := domain.Coordinates{Latitude: -lat, Longitude: lon + 180}
			d := Haversine(a, b)
			require.False(t, math.IsNaN(d), "antipode of %v", a)
			assert.InDelta(t, math.Pi*EarthRadiusKm, d, 0.01, "antipode of %v", a)
		}
	}
}
