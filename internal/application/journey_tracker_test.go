package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/journey"
	"github.com/reliancemove/service-quote/internal/domain/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func leg(meters, seconds float64) journey.Leg {
	return journey.Leg{
		Distance: &journey.Measure{Value: meters},
		Duration: &journey.Measure{Value: seconds},
	}
}

func threeLegRoute() journey.Response {
	return journey.Response{
		Status: journey.StatusOK,
		Routes: []journey.Route{{Legs: []journey.Leg{leg(5000, 600), leg(3000, 400), leg(2000, 300)}}},
	}
}

type fakeProvider struct {
	mu       sync.Mutex
	resp     journey.Response
	err      error
	requests []journey.Request
}

func (p *fakeProvider) Directions(_ context.Context, req journey.Request) (journey.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.resp, p.err
}

type fakeDistance struct {
	body string
	err  error
}

func (d fakeDistance) Distance(context.Context, pricing.DistanceRequest) (pricing.DistanceResponse, error) {
	var resp pricing.DistanceResponse
	if d.err != nil {
		return resp, d.err
	}
	err := json.Unmarshal([]byte(d.body), &resp)
	return resp, err
}

func setupRoute(t *testing.T, store *Store) {
	t.Helper()
	setLocation(t, store, bookingDomain.RolePickup, "1 A St")
	_, err := store.AddStop(bookingDomain.NewStop("10 High St", bookingDomain.StopPatch{}))
	require.NoError(t, err)
	_, err = store.AddStop(bookingDomain.NewStop("22 Low St", bookingDomain.StopPatch{}))
	require.NoError(t, err)
	setLocation(t, store, bookingDomain.RoleDelivery, "9 Z St")
}

func TestJourneyTracker_RequestPreservesStopOrder(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()

	setupRoute(t, store)

	req, ok := tracker.Request()
	require.True(t, ok)
	assert.Equal(t, []string{"1 A St", "10 High St", "22 Low St", "9 Z St"}, req.Locations())
	assert.False(t, req.OptimizeWaypoints)
	assert.Equal(t, bookingDomain.CalcPending, store.Snapshot().JourneyStatus)
}

func TestJourneyTracker_ApplyAggregatesOnce(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()
	setupRoute(t, store)

	applied, err := tracker.Apply("", threeLegRoute())
	require.NoError(t, err)
	assert.True(t, applied)

	snap := store.Snapshot()
	assert.Equal(t, "6.2 mi", snap.Journey.Distance)
	assert.Equal(t, "21 min", snap.Journey.Duration)
	assert.Equal(t, bookingDomain.CalcReady, snap.JourneyStatus)
	rev := store.Revision()

	different := journey.Response{
		Status: journey.StatusOK,
		Routes: []journey.Route{{Legs: []journey.Leg{leg(90000, 9000)}}},
	}
	applied, err = tracker.Apply("", different)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "6.2 mi", store.Snapshot().Journey.Distance)
	assert.Equal(t, rev, store.Revision())
}

func TestJourneyTracker_WaypointChangeResetsGuard(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()
	setupRoute(t, store)

	req, _ := tracker.Request()
	staleKey := req.Key()
	_, err := tracker.Apply(staleKey, threeLegRoute())
	require.NoError(t, err)

	_, err = store.RemoveStop(0)
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.CalcPending, store.Snapshot().JourneyStatus)

	applied, err := tracker.Apply(staleKey, threeLegRoute())
	require.NoError(t, err)
	assert.False(t, applied)

	twoLegs := journey.Response{
		Status: journey.StatusOK,
		Routes: []journey.Route{{Legs: []journey.Leg{leg(1609.34, 3600), leg(1609.34, 1800)}}},
	}
	applied, err = tracker.Apply("", twoLegs)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "2.0 mi", store.Snapshot().Journey.Distance)
	assert.Equal(t, "1 hr 30 min", store.Snapshot().Journey.Duration)
}

func TestJourneyTracker_FloorChangeKeepsAppliedRoute(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()
	setupRoute(t, store)
	_, err := tracker.Apply("", threeLegRoute())
	require.NoError(t, err)

	floor := bookingDomain.FloorThird
	_, err = store.UpdateAddress(bookingDomain.RolePickup, bookingDomain.AddressPatch{Floor: &floor})
	require.NoError(t, err)

	assert.Equal(t, bookingDomain.CalcReady, store.Snapshot().JourneyStatus)
	applied, err := tracker.Apply("", threeLegRoute())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestJourneyTracker_FailedStatusKeepsJourney(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()
	setupRoute(t, store)

	applied, err := tracker.Apply("", journey.Response{Status: "ZERO_RESULTS"})
	assert.ErrorIs(t, err, journey.ErrRouteStatus)
	assert.False(t, applied)
	snap := store.Snapshot()
	assert.Equal(t, bookingDomain.CalcFailed, snap.JourneyStatus)
	assert.Empty(t, snap.Journey.Distance)

	incomplete := journey.Response{
		Status: journey.StatusOK,
		Routes: []journey.Route{{Legs: []journey.Leg{leg(5000, 600), {Distance: &journey.Measure{Value: 1}}}}},
	}
	_, err = tracker.Apply("", incomplete)
	assert.ErrorIs(t, err, journey.ErrIncompleteLeg)

	applied, err = tracker.Apply("", threeLegRoute())
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestJourneyTracker_ProviderFetch(t *testing.T) {
	store := newTestStore()
	provider := &fakeProvider{resp: threeLegRoute()}
	tracker := NewJourneyTracker(store, provider, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()

	setupRoute(t, store)
	tracker.Wait()

	snap := store.Snapshot()
	assert.Equal(t, "6.2 mi", snap.Journey.Distance)
	assert.Equal(t, bookingDomain.CalcReady, snap.JourneyStatus)
	require.NotEmpty(t, provider.requests)
	last := provider.requests[len(provider.requests)-1]
	assert.Equal(t, []string{"1 A St", "10 High St", "22 Low St", "9 Z St"}, last.Locations())
}

func TestJourneyTracker_ProviderFailureMarksFailed(t *testing.T) {
	store := newTestStore()
	provider := &fakeProvider{err: errors.New("maps down")}
	tracker := NewJourneyTracker(store, provider, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()

	setLocation(t, store, bookingDomain.RolePickup, "1 A St")
	setLocation(t, store, bookingDomain.RoleDelivery, "9 Z St")
	tracker.Wait()

	assert.Equal(t, bookingDomain.CalcFailed, store.Snapshot().JourneyStatus)
}

func TestJourneyTracker_DistanceFallback(t *testing.T) {
	store := newTestStore()
	distance := fakeDistance{body: `{"rows":[{"elements":[{"distance":{"text":"10 km"},"duration":{"text":"15 mins"}}]}]}`}
	tracker := NewJourneyTracker(store, nil, distance, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()

	setLocation(t, store, bookingDomain.RolePickup, "1 A St")
	setLocation(t, store, bookingDomain.RoleDelivery, "9 Z St")
	tracker.Wait()

	snap := store.Snapshot()
	assert.Equal(t, "6.21 miles", snap.Journey.Distance)
	assert.Equal(t, "15 mins", snap.Journey.Duration)
	assert.Equal(t, bookingDomain.CalcPending, snap.JourneyStatus)

	_, err := tracker.Apply("", threeLegRoute())
	require.NoError(t, err)
	assert.Equal(t, "6.2 mi", store.Snapshot().Journey.Distance)
}

func TestJourneyTracker_DistanceFallbackIgnoredAfterRoute(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()
	setupRoute(t, store)

	_, err := tracker.Apply("", threeLegRoute())
	require.NoError(t, err)

	req, _ := tracker.Request()
	tracker.distance = fakeDistance{body: `{"rows":[{"elements":[{"distance":{"text":"99 km"},"duration":{"text":"2 hours"}}]}]}`}
	tracker.fetchDistance(req.Key(), pricing.DistanceRequest{Origin: "1 A St", Destination: "9 Z St"})

	assert.Equal(t, "6.2 mi", store.Snapshot().Journey.Distance)
}

func TestJourneyTracker_ClearedAddressInvalidatesJourney(t *testing.T) {
	store := newTestStore()
	tracker := NewJourneyTracker(store, nil, nil, zap.NewNop())
	tracker.Start()
	defer tracker.Stop()
	setupRoute(t, store)

	applied, err := tracker.Apply("", threeLegRoute())
	require.NoError(t, err)
	require.True(t, applied)

	setLocation(t, store, bookingDomain.RoleDelivery, "")

	snap := store.Snapshot()
	assert.Equal(t, bookingDomain.CalcIdle, snap.JourneyStatus)
	assert.Empty(t, snap.Journey.Distance)
	assert.Nil(t, snap.Journey.Route)
	_, ok := tracker.Request()
	assert.False(t, ok)
}
