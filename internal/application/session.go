package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/common/domain"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/journey"
	"github.com/reliancemove/service-quote/internal/domain/pricing"
	"go.uber.org/zap"
)

// Address fields whose free-text input is debounced before autocomplete.
const (
	FieldPickup   = "pickup"
	FieldDelivery = "delivery"
	FieldStop     = "stop"
)

// SessionDeps are the collaborators shared by every wizard session.
type SessionDeps struct {
	Pricing        pricing.PricingService
	Distance       pricing.DistanceService
	Directions     journey.Provider
	Lookup         *LookupService
	DebounceWindow time.Duration
}

// Session is one wizard run: a draft store plus the computations that follow it.
type Session struct {
	id         uuid.UUID
	createdAt  time.Time
	store      *Store
	price      *PriceTrigger
	journey    *JourneyTracker
	lookup     *LookupService
	debouncers map[string]*Debouncer
	logger     *zap.Logger

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

func newSession(deps SessionDeps, now time.Time, logger *zap.Logger) *Session {
	id := uuid.New()
	logger = logger.With(zap.String("session_id", id.String()))
	store := NewStore(bookingDomain.NewDraft(now), logger)

	s := &Session{
		id:        id,
		createdAt: now,
		store:     store,
		price:     NewPriceTrigger(store, deps.Pricing, logger),
		journey:   NewJourneyTracker(store, deps.Directions, deps.Distance, logger),
		lookup:    deps.Lookup,
		debouncers: map[string]*Debouncer{
			FieldPickup:   NewDebouncer(deps.DebounceWindow),
			FieldDelivery: NewDebouncer(deps.DebounceWindow),
			FieldStop:     NewDebouncer(deps.DebounceWindow),
		},
		logger:   logger,
		lastSeen: now,
	}
	s.price.Start()
	s.journey.Start()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// CreatedAt returns when the session started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Store returns the session's draft store.
func (s *Session) Store() *Store { return s.store }

// Price returns the session's price trigger.
func (s *Session) Price() *PriceTrigger { return s.price }

// Journey returns the session's journey tracker.
func (s *Session) Journey() *JourneyTracker { return s.journey }

// Snapshot returns a copy of the current draft.
func (s *Session) Snapshot() bookingDomain.Snapshot { return s.store.Snapshot() }

// Autocomplete returns predictions for the text typed into field once typing
// has paused. A call replaced by a newer one for the same field returns ErrSuperseded.
func (s *Session) Autocomplete(ctx context.Context, field, query string) ([]bookingDomain.Prediction, error) {
	deb, ok := s.debouncers[field]
	if !ok {
		return nil, domain.NewFieldValidationError("field", "field must be pickup, delivery or stop")
	}
	if err := deb.Wait(ctx); err != nil {
		return nil, err
	}
	return s.lookup.Autocomplete(ctx, query)
}

// PostalCode returns the postcode for a place.
func (s *Session) PostalCode(ctx context.Context, placeID string) (string, error) {
	return s.lookup.PostalCode(ctx, placeID)
}

// SelectPlace resolves the postcode of a chosen prediction and writes the
// formatted address into the pickup or delivery address.
func (s *Session) SelectPlace(ctx context.Context, role bookingDomain.Role, description, placeID string) (bookingDomain.Groups, error) {
	if description == "" {
		return nil, domain.NewFieldValidationError("description", "description is required")
	}
	postcode, err := s.lookup.PostalCode(ctx, placeID)
	if err != nil {
		return nil, err
	}
	location := bookingDomain.FormatAddressWithPostcode(description, postcode)
	return s.store.UpdateAddress(role, bookingDomain.AddressPatch{
		Location: &location,
		Postcode: &postcode,
	})
}

// Close cancels pending debounce timers, stops the price and journey
// computations and closes the store. Late network completions become no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, d := range s.debouncers {
		d.Stop()
	}
	s.price.Stop()
	s.journey.Stop()
	s.store.Close()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
