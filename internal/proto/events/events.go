// Package events defines the Kafka topics, CloudEvent types and payloads
// exchanged with the booking backend.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicQuoteEvents   = "quote.events"
	TopicPaymentEvents = "payment.events"
)

// Event types published on TopicQuoteEvents.
const (
	QuoteCreated         = "quote.created"
	QuoteUpdated         = "quote.updated"
	QuoteCheckoutStarted = "quote.checkout_started"
	QuoteBooked          = "quote.booked"
)

// Event types consumed from TopicPaymentEvents.
const (
	PaymentCheckoutCompleted = "payment.checkout_completed"
)

// QuoteEvent is the payload of every quote lifecycle event.
type QuoteEvent struct {
	QuoteRef          string    `json:"quote_ref"`
	SessionID         uuid.UUID `json:"session_id"`
	Status            string    `json:"status"`
	Price             float64   `json:"price"`
	Currency          string    `json:"currency"`
	VanType           string    `json:"van_type,omitempty"`
	Distance          int       `json:"distance"`
	CheckoutSessionID string    `json:"checkout_session_id,omitempty"`
	BookingRef        string    `json:"booking_ref,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// CheckoutCompletedEvent is published by the payment side once a checkout
// session has been paid and the backend has created the booking.
type CheckoutCompletedEvent struct {
	CheckoutSessionID string    `json:"checkout_session_id"`
	QuotationRef      string    `json:"quotation_ref"`
	BookingRef        string    `json:"booking_ref"`
	AmountTotal       int64     `json:"amount_total"`
	Currency          string    `json:"currency"`
	OccurredAt        time.Time `json:"occurred_at"`
}
