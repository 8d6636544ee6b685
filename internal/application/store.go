package application

import (
	"errors"
	"sync"
	"time"

	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by store operations after the session has been closed.
var ErrSessionClosed = errors.New("session closed")

// Change describes one committed mutation of a draft.
type Change struct {
	Revision uint64                 `json:"revision"`
	Groups   bookingDomain.Groups   `json:"groups"`
	Draft    bookingDomain.Snapshot `json:"draft"`
}

// Listener receives changes for the groups it subscribed to.
type Listener func(Change)

type subscription struct {
	groups bookingDomain.Groups
	fn     Listener
}

// Store owns a booking draft. All mutations go through it so that subscribers
// learn exactly which field groups changed.
type Store struct {
	mu       sync.Mutex
	draft    *bookingDomain.Draft
	revision uint64
	subs     map[int]subscription
	nextSub  int
	closed   bool
	now      func() time.Time
	logger   *zap.Logger
}

// NewStore creates a store around the given draft.
func NewStore(draft *bookingDomain.Draft, logger *zap.Logger) *Store {
	return &Store{
		draft:  draft,
		subs:   make(map[int]subscription),
		now:    time.Now,
		logger: logger,
	}
}

// Subscribe registers fn for changes touching any of groups. The returned
// function removes the subscription.
func (s *Store) Subscribe(groups bookingDomain.Groups, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{groups: groups, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a deep copy of the current draft.
func (s *Store) Snapshot() bookingDomain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Snapshot()
}

// Revision returns the number of committed changes so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Close drops all subscribers. Later mutations fail with ErrSessionClosed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[int]subscription)
	s.mu.Unlock()
}

// update runs fn under the store lock and notifies matching subscribers once the
// lock is released. Listeners run on the caller's goroutine.
func (s *Store) update(fn func(d *bookingDomain.Draft) (bookingDomain.Groups, error)) (bookingDomain.Groups, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	groups, err := fn(s.draft)
	if err != nil || len(groups) == 0 {
		s.mu.Unlock()
		return groups, err
	}

	s.revision++
	change := Change{Revision: s.revision, Groups: groups, Draft: s.draft.Snapshot()}
	var listeners []Listener
	for _, sub := range s.subs {
		if sub.groups.Intersects(groups) {
			listeners = append(listeners, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
	return groups, nil
}

// --- Typed operations ---

// UpdateAddress merges patch into the pickup or delivery address.
func (s *Store) UpdateAddress(role bookingDomain.Role, patch bookingDomain.AddressPatch) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.UpdateAddress(role, patch)
	})
}

// AddStop appends an extra stop.
func (s *Store) AddStop(stop bookingDomain.Stop) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.AddStop(stop)
	})
}

// RemoveStop removes the stop at index. Out-of-range indexes change nothing.
func (s *Store) RemoveStop(index int) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.RemoveStop(index), nil
	})
}

// UpdateStop merges patch into the stop at index.
func (s *Store) UpdateStop(index int, patch bookingDomain.StopPatch) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.UpdateStop(index, patch)
	})
}

// MoveStop reorders a stop.
func (s *Store) MoveStop(from, to int) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.MoveStop(from, to)
	})
}

// SetItems replaces the item list.
func (s *Store) SetItems(items []bookingDomain.Item) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetItems(items)
	})
}

// AddItem adds one of the named item.
func (s *Store) AddItem(name string) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.AddItem(name)
	})
}

// UpdateItemQuantity sets an item's quantity; qty <= 0 removes it.
func (s *Store) UpdateItemQuantity(name string, qty int) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.UpdateItemQuantity(name, qty), nil
	})
}

// RemoveItem removes the named item.
func (s *Store) RemoveItem(name string) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.RemoveItem(name), nil
	})
}

// SetVan selects a van type.
func (s *Store) SetVan(t bookingDomain.VanType) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetVan(t)
	})
}

// ToggleVan cycles to the next van type.
func (s *Store) ToggleVan() (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.ToggleVan(), nil
	})
}

// SetSchedule merges patch into the selected date.
func (s *Store) SetSchedule(patch bookingDomain.SchedulePatch) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetSchedule(patch)
	})
}

// SetItemsToDismantle sets the dismantle count.
func (s *Store) SetItemsToDismantle(n int) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetItemsToDismantle(n)
	})
}

// SetItemsToAssemble sets the assemble count.
func (s *Store) SetItemsToAssemble(n int) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetItemsToAssemble(n)
	})
}

// SetAdditionalServices merges patch into the additional services.
func (s *Store) SetAdditionalServices(patch bookingDomain.AdditionalServicesPatch) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetAdditionalServices(patch), nil
	})
}

// SetCustomerDetails merges patch into the customer details.
func (s *Store) SetCustomerDetails(patch bookingDomain.CustomerDetailsPatch) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetCustomerDetails(patch), nil
	})
}

// SetServiceDetails merges patch into the service details.
func (s *Store) SetServiceDetails(patch bookingDomain.ServiceDetailsPatch) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetServiceDetails(patch), nil
	})
}

// Reset returns the draft to its wizard-start defaults.
func (s *Store) Reset() (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.Reset(s.now()), nil
	})
}

// SetQuoteRef records the quotation reference issued by the backend.
func (s *Store) SetQuoteRef(ref string) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetQuoteRef(ref), nil
	})
}

// SetBookingRef records the booking reference issued after payment.
func (s *Store) SetBookingRef(ref string) (bookingDomain.Groups, error) {
	return s.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		return d.SetBookingRef(ref), nil
	})
}
