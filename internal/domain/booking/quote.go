package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/common/domain"
)

// Quote is the ledger record of a quote submitted to the backend.
type Quote struct {
	id                uuid.UUID
	quoteRef          string
	sessionID         uuid.UUID
	status            QuoteStatus
	price             float64
	currency          string
	payload           QuotePayload
	checkoutSessionID string
	bookingRef        string

	bookedAt  *time.Time
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewQuote creates a ledger record for a freshly issued quotation reference.
func NewQuote(quoteRef string, sessionID uuid.UUID, payload QuotePayload) (*Quote, error) {
	if quoteRef == "" {
		return nil, domain.NewValidationError("quotation reference is required")
	}
	if sessionID == uuid.Nil {
		return nil, domain.NewValidationError("session ID is required")
	}
	payload.QuotationRef = quoteRef

	now := time.Now().UTC()
	return &Quote{
		id:        uuid.New(),
		quoteRef:  quoteRef,
		sessionID: sessionID,
		status:    QuoteStatusQuoted,
		price:     payload.Price,
		currency:  domain.CurrencyGBP,
		payload:   payload,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructQuote rebuilds a Quote from persistence data (no validation).
func ReconstructQuote(
	id uuid.UUID,
	quoteRef string,
	sessionID uuid.UUID,
	status QuoteStatus,
	price float64,
	currency string,
	payload QuotePayload,
	checkoutSessionID string,
	bookingRef string,
	bookedAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Quote {
	return &Quote{
		id:                id,
		quoteRef:          quoteRef,
		sessionID:         sessionID,
		status:            status,
		price:             price,
		currency:          currency,
		payload:           payload,
		checkoutSessionID: checkoutSessionID,
		bookingRef:        bookingRef,
		bookedAt:          bookedAt,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (q *Quote) ID() uuid.UUID { return q.id }
func (q *Quote) QuoteRef() string { return q.quoteRef }
func (q *Quote) SessionID() uuid.UUID { return q.sessionID }
func (q *Quote) Status() QuoteStatus { return q.status }
func (q *Quote) Price() float64 { return q.price }
func (q *Quote) Currency() string { return q.currency }
func (q *Quote) Payload() QuotePayload { return q.payload }
func (q *Quote) CheckoutSessionID() string { return q.checkoutSessionID }
func (q *Quote) BookingRef() string { return q.bookingRef }
func (q *Quote) BookedAt() *time.Time { return q.bookedAt }
func (q *Quote) Version() int64 { return q.version }
func (q *Quote) CreatedAt() time.Time { return q.createdAt }
func (q *Quote) UpdatedAt() time.Time { return q.updatedAt }

// Revise replaces the submitted payload after a quote update.
func (q *Quote) Revise(payload QuotePayload) error {
	if !q.status.CanTransitionTo(QuoteStatusQuoted) {
		return domain.NewInvalidStateError(string(q.status), string(QuoteStatusQuoted))
	}
	payload.QuotationRef = q.quoteRef
	q.payload = payload
	q.price = payload.Price
	q.status = QuoteStatusQuoted
	q.updatedAt = time.Now().UTC()
	return nil
}

// StartCheckout records the payment provider's checkout session.
func (q *Quote) StartCheckout(checkoutSessionID string) error {
	if !q.status.CanTransitionTo(QuoteStatusCheckoutStarted) {
		return domain.NewInvalidStateError(string(q.status), string(QuoteStatusCheckoutStarted))
	}
	if checkoutSessionID == "" {
		return domain.NewValidationError("checkout session ID is required")
	}
	q.checkoutSessionID = checkoutSessionID
	q.status = QuoteStatusCheckoutStarted
	q.updatedAt = time.Now().UTC()
	return nil
}

// MarkBooked transitions a quote in checkout to booked.
func (q *Quote) MarkBooked(bookingRef string) error {
	if !q.status.CanTransitionTo(QuoteStatusBooked) {
		return domain.NewInvalidStateError(string(q.status), string(QuoteStatusBooked))
	}
	if bookingRef == "" {
		return domain.NewValidationError("booking reference is required")
	}
	now := time.Now().UTC()
	q.bookingRef = bookingRef
	q.status = QuoteStatusBooked
	q.bookedAt = &now
	q.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (q *Quote) IncrementVersion() {
	q.version++
	q.updatedAt = time.Now().UTC()
}
