package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/backend"
	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/reliancemove/service-quote/internal/common/kafka"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/payment"
	"github.com/reliancemove/service-quote/internal/proto/events"
	"go.uber.org/zap"
)

const eventSource = "service-quote"

// QuoteBackend is the quote, checkout and order side of the booking backend.
type QuoteBackend interface {
	CreateQuote(ctx context.Context, payload bookingDomain.QuotePayload) (string, error)
	UpdateQuote(ctx context.Context, payload bookingDomain.QuotePayload) error
	SendQuoteMail(ctx context.Context, quoteRef string) error
	CreateCheckoutSession(ctx context.Context, quoteRef string) (string, error)
	GetOrder(ctx context.Context, checkoutSessionID string) (backend.Order, error)
}

// CheckoutVerifier confirms a checkout session with the payment provider.
type CheckoutVerifier interface {
	Verify(ctx context.Context, sessionID string) (payment.CheckoutResult, error)
}

// QuoteDTO is the response representation of a ledger quote.
type QuoteDTO struct {
	ID                uuid.UUID                  `json:"id"`
	QuoteRef          string                     `json:"quote_ref"`
	SessionID         uuid.UUID                  `json:"session_id"`
	Status            string                     `json:"status"`
	Price             float64                    `json:"price"`
	Currency          string                     `json:"currency"`
	Payload           bookingDomain.QuotePayload `json:"payload"`
	CheckoutSessionID string                     `json:"checkout_session_id,omitempty"`
	BookingRef        string                     `json:"booking_ref,omitempty"`
	BookedAt          *time.Time                 `json:"booked_at,omitempty"`
	Version           int64                      `json:"version"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// SubmitResult is the outcome of a quote submission.
type SubmitResult struct {
	QuoteRef string                 `json:"quotationRef"`
	Created  bool                   `json:"created"`
	Draft    bookingDomain.Snapshot `json:"draft"`
}

// QuoteStatsDTO holds quote statistics for the admin dashboard.
type QuoteStatsDTO struct {
	TotalQuotes int64            `json:"total_quotes"`
	ByStatus    map[string]int64 `json:"by_status"`
}

// QuoteService orchestrates quote submission, checkout and payment confirmation.
// The backend is the source of truth; the ledger keeps a local record of what
// was submitted when a repository is configured.
type QuoteService struct {
	backend   QuoteBackend
	repo      bookingDomain.QuoteRepository
	publisher kafka.Publisher
	verifier  CheckoutVerifier
	logger    *zap.Logger
}

// NewQuoteService creates a new QuoteService. repo and verifier may be nil.
func NewQuoteService(
	client QuoteBackend,
	repo bookingDomain.QuoteRepository,
	publisher kafka.Publisher,
	verifier CheckoutVerifier,
	logger *zap.Logger,
) *QuoteService {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &QuoteService{
		backend:   client,
		repo:      repo,
		publisher: publisher,
		verifier:  verifier,
		logger:    logger,
	}
}

// SubmitQuote validates the session's draft and creates the quote on the
// backend, or updates it when the session already holds a quotation reference.
func (s *QuoteService) SubmitQuote(ctx context.Context, sess *Session) (*SubmitResult, error) {
	snap := sess.Snapshot()
	if err := snap.ValidateForSubmission(); err != nil {
		return nil, err
	}
	payload := bookingDomain.BuildQuotePayload(snap)

	if snap.QuoteRef != "" {
		payload.QuotationRef = snap.QuoteRef
		if err := s.backend.UpdateQuote(ctx, payload); err != nil {
			return nil, err
		}
		s.recordRevision(ctx, sess.ID(), payload)
		return &SubmitResult{QuoteRef: snap.QuoteRef, Draft: sess.Snapshot()}, nil
	}

	ref, err := s.backend.CreateQuote(ctx, payload)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Store().SetQuoteRef(ref); err != nil {
		return nil, err
	}
	s.recordCreation(ctx, sess.ID(), ref, payload)

	s.logger.Info("quote created",
		zap.String("session_id", sess.ID().String()),
		zap.String("quote_ref", ref),
	)
	return &SubmitResult{QuoteRef: ref, Created: true, Draft: sess.Snapshot()}, nil
}

// SendQuoteMail asks the backend to email the session's quote.
func (s *QuoteService) SendQuoteMail(ctx context.Context, sess *Session) error {
	ref := sess.Snapshot().QuoteRef
	if ref == "" {
		return domain.NewFieldValidationError("quoteRef", "quote reference is required")
	}
	return s.backend.SendQuoteMail(ctx, ref)
}

// StartCheckout opens a payment checkout session for the session's quote.
func (s *QuoteService) StartCheckout(ctx context.Context, sess *Session) (string, error) {
	ref := sess.Snapshot().QuoteRef
	if ref == "" {
		return "", domain.NewFieldValidationError("quoteRef", "quote reference is required")
	}
	checkoutID, err := s.backend.CreateCheckoutSession(ctx, ref)
	if err != nil {
		return "", err
	}

	if s.repo != nil {
		q, err := s.repo.FindByRef(ctx, ref)
		switch {
		case err != nil:
			s.logger.Error("failed to load quote for checkout", zap.String("quote_ref", ref), zap.Error(err))
		case q.StartCheckout(checkoutID) != nil:
			s.logger.Warn("quote not eligible for checkout", zap.String("quote_ref", ref), zap.String("status", string(q.Status())))
		default:
			q.IncrementVersion()
			if err := s.repo.Update(ctx, q); err != nil {
				s.logger.Error("failed to record checkout", zap.String("quote_ref", ref), zap.Error(err))
			} else {
				s.publishQuoteEvent(ctx, events.QuoteCheckoutStarted, q)
			}
		}
	}
	return checkoutID, nil
}

// ConfirmPayment verifies a returned checkout session, reads the booking
// reference from the backend and records it on the session.
func (s *QuoteService) ConfirmPayment(ctx context.Context, sess *Session, checkoutSessionID string) (string, error) {
	if s.verifier == nil {
		return "", domain.NewForbiddenError("payment verification is not configured")
	}
	if checkoutSessionID == "" {
		return "", domain.NewFieldValidationError("session_id", "checkout session ID is required")
	}
	ref := sess.Snapshot().QuoteRef
	if ref == "" {
		return "", domain.NewFieldValidationError("quoteRef", "quote reference is required")
	}

	result, err := s.verifier.Verify(ctx, checkoutSessionID)
	if err != nil {
		return "", domain.NewUpstreamError(err.Error())
	}
	if !result.Paid {
		return "", domain.NewInvalidStateError("unpaid", "paid")
	}
	if result.QuoteRef != "" && result.QuoteRef != ref {
		return "", domain.NewForbiddenError("checkout session belongs to another quote")
	}

	order, err := s.backend.GetOrder(ctx, checkoutSessionID)
	if err != nil {
		return "", err
	}
	if _, err := sess.Store().SetBookingRef(order.BookingRef); err != nil {
		return "", err
	}
	if _, err := s.recordBooking(ctx, ref, checkoutSessionID, order.BookingRef); err != nil {
		s.logger.Error("failed to record booking", zap.String("quote_ref", ref), zap.Error(err))
	}
	return order.BookingRef, nil
}

// MarkBookedByCheckout records a booking reported by the payment side. It
// returns the quotation reference that was booked.
func (s *QuoteService) MarkBookedByCheckout(ctx context.Context, evt events.CheckoutCompletedEvent) (string, error) {
	if evt.BookingRef == "" {
		return "", domain.NewFieldValidationError("booking_ref", "booking reference is required")
	}
	q, err := s.recordBooking(ctx, evt.QuotationRef, evt.CheckoutSessionID, evt.BookingRef)
	if err != nil {
		return "", err
	}
	if q == nil {
		return evt.QuotationRef, nil
	}
	return q.QuoteRef(), nil
}

// GetSessionQuotes returns the ledger entries submitted from a session.
func (s *QuoteService) GetSessionQuotes(ctx context.Context, sessionID uuid.UUID) ([]QuoteDTO, error) {
	if s.repo == nil {
		return []QuoteDTO{}, nil
	}
	quotes, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toQuoteDTOs(quotes), nil
}

// --- Admin methods ---

// ListAllQuotes returns a paginated list of all ledger quotes (admin).
func (s *QuoteService) ListAllQuotes(ctx context.Context, page, limit int) ([]QuoteDTO, int64, error) {
	if s.repo == nil {
		return nil, 0, domain.NewForbiddenError("quote ledger is not configured")
	}
	quotes, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}
	return toQuoteDTOs(quotes), total, nil
}

// GetQuoteStats returns aggregate quote statistics (admin).
func (s *QuoteService) GetQuoteStats(ctx context.Context) (*QuoteStatsDTO, error) {
	if s.repo == nil {
		return nil, domain.NewForbiddenError("quote ledger is not configured")
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &QuoteStatsDTO{TotalQuotes: total, ByStatus: counts}, nil
}

// --- Ledger ---

func (s *QuoteService) recordCreation(ctx context.Context, sessionID uuid.UUID, ref string, payload bookingDomain.QuotePayload) {
	q, err := bookingDomain.NewQuote(ref, sessionID, payload)
	if err != nil {
		s.logger.Error("invalid quote for ledger", zap.String("quote_ref", ref), zap.Error(err))
		return
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, q); err != nil {
			s.logger.Error("failed to save quote", zap.String("quote_ref", ref), zap.Error(err))
			return
		}
	}
	s.publishQuoteEvent(ctx, events.QuoteCreated, q)
}

func (s *QuoteService) recordRevision(ctx context.Context, sessionID uuid.UUID, payload bookingDomain.QuotePayload) {
	ref := payload.QuotationRef
	if s.repo == nil {
		if q, err := bookingDomain.NewQuote(ref, sessionID, payload); err == nil {
			s.publishQuoteEvent(ctx, events.QuoteUpdated, q)
		}
		return
	}

	q, err := s.repo.FindByRef(ctx, ref)
	if domain.IsNotFound(err) {
		s.recordCreation(ctx, sessionID, ref, payload)
		return
	}
	if err != nil {
		s.logger.Error("failed to load quote for revision", zap.String("quote_ref", ref), zap.Error(err))
		return
	}
	if err := q.Revise(payload); err != nil {
		s.logger.Warn("quote not revisable", zap.String("quote_ref", ref), zap.Error(err))
		return
	}
	q.IncrementVersion()
	if err := s.repo.Update(ctx, q); err != nil {
		s.logger.Error("failed to update quote", zap.String("quote_ref", ref), zap.Error(err))
		return
	}
	s.publishQuoteEvent(ctx, events.QuoteUpdated, q)
}

// recordBooking moves the ledger entry to booked. Repeating the same booking is
// a no-op. It returns nil without a ledger.
func (s *QuoteService) recordBooking(ctx context.Context, quoteRef, checkoutSessionID, bookingRef string) (*bookingDomain.Quote, error) {
	if s.repo == nil {
		return nil, nil
	}

	var (
		q   *bookingDomain.Quote
		err error
	)
	if quoteRef != "" {
		q, err = s.repo.FindByRef(ctx, quoteRef)
	} else {
		q, err = s.repo.FindByCheckoutSession(ctx, checkoutSessionID)
	}
	if err != nil {
		return nil, err
	}

	if q.Status() == bookingDomain.QuoteStatusBooked {
		if q.BookingRef() == bookingRef {
			return q, nil
		}
		return nil, domain.NewConflictError(fmt.Sprintf("quote %s already booked as %s", q.QuoteRef(), q.BookingRef()))
	}
	if q.Status() == bookingDomain.QuoteStatusQuoted {
		if err := q.StartCheckout(checkoutSessionID); err != nil {
			return nil, err
		}
	}
	if err := q.MarkBooked(bookingRef); err != nil {
		return nil, err
	}
	q.IncrementVersion()
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}

	s.publishQuoteEvent(ctx, events.QuoteBooked, q)
	s.logger.Info("quote booked",
		zap.String("quote_ref", q.QuoteRef()),
		zap.String("booking_ref", bookingRef),
	)
	return q, nil
}

// --- Helpers ---

func toQuoteDTO(q *bookingDomain.Quote) QuoteDTO {
	return QuoteDTO{
		ID:                q.ID(),
		QuoteRef:          q.QuoteRef(),
		SessionID:         q.SessionID(),
		Status:            string(q.Status()),
		Price:             q.Price(),
		Currency:          q.Currency(),
		Payload:           q.Payload(),
		CheckoutSessionID: q.CheckoutSessionID(),
		BookingRef:        q.BookingRef(),
		BookedAt:          q.BookedAt(),
		Version:           q.Version(),
		CreatedAt:         q.CreatedAt(),
		UpdatedAt:         q.UpdatedAt(),
	}
}

func toQuoteDTOs(quotes []*bookingDomain.Quote) []QuoteDTO {
	dtos := make([]QuoteDTO, len(quotes))
	for i, q := range quotes {
		dtos[i] = toQuoteDTO(q)
	}
	return dtos
}

func (s *QuoteService) publishQuoteEvent(ctx context.Context, eventType string, q *bookingDomain.Quote) {
	payload := q.Payload()
	evt := events.QuoteEvent{
		QuoteRef:          q.QuoteRef(),
		SessionID:         q.SessionID(),
		Status:            string(q.Status()),
		Price:             q.Price(),
		Currency:          q.Currency(),
		VanType:           string(payload.VanType),
		Distance:          payload.Distance,
		CheckoutSessionID: q.CheckoutSessionID(),
		BookingRef:        q.BookingRef(),
		OccurredAt:        time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicQuoteEvents, eventType, q.QuoteRef(), evt)
}

func (s *QuoteService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
