package application

import (
	"context"
	"errors"
	"sync"

	"github.com/reliancemove/service-quote/internal/common/domain"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/journey"
	"github.com/reliancemove/service-quote/internal/domain/pricing"
	"go.uber.org/zap"
)

// JourneyTracker keeps the draft's journey in step with its waypoints. At most
// one route is committed per distinct ordered waypoint list.
type JourneyTracker struct {
	store    *Store
	provider journey.Provider
	distance pricing.DistanceService
	logger   *zap.Logger

	mu      sync.Mutex
	key     string
	request journey.Request
	valid   bool
	applied bool

	ctx         context.Context
	cancel      context.CancelFunc
	inflight    sync.WaitGroup
	unsubscribe func()
}

// NewJourneyTracker creates a tracker for store. A nil provider leaves route
// lookups to the browser, which reports results through Apply. A nil distance
// service disables the two-point fallback.
func NewJourneyTracker(store *Store, provider journey.Provider, distance pricing.DistanceService, logger *zap.Logger) *JourneyTracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &JourneyTracker{
		store:    store,
		provider: provider,
		distance: distance,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes the tracker to waypoint changes.
func (t *JourneyTracker) Start() {
	t.unsubscribe = t.store.Subscribe(bookingDomain.WaypointGroups, func(Change) {
		t.Refresh()
	})
}

// Stop unsubscribes and cancels in-flight lookups.
func (t *JourneyTracker) Stop() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.mu.Lock()
	t.key = ""
	t.valid = false
	t.mu.Unlock()
	t.cancel()
}

// Wait blocks until in-flight lookups have finished.
func (t *JourneyTracker) Wait() {
	t.inflight.Wait()
}

// Request returns the directions request for the current waypoints and whether
// one can be built yet.
func (t *JourneyTracker) Request() (journey.Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.request, t.valid
}

// Refresh resets the applied-route guard when the ordered waypoint list has
// changed and starts lookups for the new list. It reports whether the list changed.
func (t *JourneyTracker) Refresh() bool {
	var (
		changed bool
		req     journey.Request
		dreq    pricing.DistanceRequest
	)
	_, err := t.store.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		snap := d.Snapshot()
		key := journey.KeyOf(snap.Waypoints())

		t.mu.Lock()
		defer t.mu.Unlock()
		if key == t.key {
			return nil, nil
		}
		changed = true
		t.key = key
		t.applied = false

		r, err := journey.BuildRequest(snap)
		if err != nil {
			t.request, t.valid = journey.Request{}, false
			return d.MarkJourneyIdle(), nil
		}
		t.request, t.valid = r, true
		req = r
		dreq, _ = pricing.DistanceRequestFor(snap)
		return d.MarkJourneyPending(), nil
	})
	if err != nil || !changed {
		return false
	}

	t.mu.Lock()
	valid := t.valid && t.key == req.Key()
	t.mu.Unlock()
	if !valid {
		return true
	}

	if t.distance != nil {
		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			t.fetchDistance(req.Key(), dreq)
		}()
	}
	if t.provider != nil {
		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			t.fetchRoute(req)
		}()
	}
	return true
}

// Apply commits a directions result for the waypoint list identified by key. An
// empty key means the current list. It reports whether the journey was written;
// a result for a superseded list, or a repeat for an already applied one, is ignored.
func (t *JourneyTracker) Apply(key string, resp journey.Response) (bool, error) {
	summary, aggErr := journey.Aggregate(resp)

	var applied bool
	_, err := t.store.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.valid || (key != "" && key != t.key) {
			return nil, domain.ErrStaleResponse
		}
		if t.applied {
			return nil, nil
		}
		if aggErr != nil {
			return d.MarkJourneyFailed(), nil
		}
		t.applied = true
		applied = true
		return d.SetJourney(summary.Journey(t.request)), nil
	})

	switch {
	case errors.Is(err, domain.ErrStaleResponse), errors.Is(err, ErrSessionClosed):
		t.logger.Debug("directions result discarded", zap.NamedError("reason", err))
		return false, nil
	case err != nil:
		return false, err
	case aggErr != nil:
		t.logger.Warn("journey aggregation failed", zap.Error(aggErr))
		return false, aggErr
	}
	return applied, nil
}

func (t *JourneyTracker) fetchRoute(req journey.Request) {
	resp, err := t.provider.Directions(t.ctx, req)
	if err != nil {
		t.logger.Warn("directions request failed", zap.Error(err))
		t.markFailed(req.Key())
		return
	}
	_, _ = t.Apply(req.Key(), resp)
}

func (t *JourneyTracker) fetchDistance(key string, req pricing.DistanceRequest) {
	resp, err := t.distance.Distance(t.ctx, req)
	if err != nil {
		t.logger.Warn("distance request failed", zap.Error(err))
		return
	}
	dist, dur, err := resp.First()
	if err != nil {
		t.logger.Warn("distance response unusable", zap.Error(err))
		return
	}
	miles, err := pricing.KmToMiles(dist)
	if err != nil {
		t.logger.Warn("distance response unusable", zap.Error(err))
		return
	}

	_, err = t.store.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if key != t.key || t.applied {
			return nil, domain.ErrStaleResponse
		}
		return d.SetJourneyDistance(miles, dur), nil
	})
	if err != nil {
		t.logger.Debug("distance result discarded", zap.NamedError("reason", err))
	}
}

func (t *JourneyTracker) markFailed(key string) {
	_, _ = t.store.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if key != t.key || t.applied {
			return nil, nil
		}
		return d.MarkJourneyFailed(), nil
	})
}
