package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/backend"
	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/reliancemove/service-quote/internal/common/kafka"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/payment"
	"github.com/reliancemove/service-quote/internal/proto/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockQuoteBackend struct {
	mock.Mock
}

func (m *mockQuoteBackend) CreateQuote(ctx context.Context, payload bookingDomain.QuotePayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func (m *mockQuoteBackend) UpdateQuote(ctx context.Context, payload bookingDomain.QuotePayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *mockQuoteBackend) SendQuoteMail(ctx context.Context, quoteRef string) error {
	return m.Called(ctx, quoteRef).Error(0)
}

func (m *mockQuoteBackend) CreateCheckoutSession(ctx context.Context, quoteRef string) (string, error) {
	args := m.Called(ctx, quoteRef)
	return args.String(0), args.Error(1)
}

func (m *mockQuoteBackend) GetOrder(ctx context.Context, checkoutSessionID string) (backend.Order, error) {
	args := m.Called(ctx, checkoutSessionID)
	return args.Get(0).(backend.Order), args.Error(1)
}

type mockQuoteRepo struct {
	mock.Mock
}

func (m *mockQuoteRepo) FindByRef(ctx context.Context, quoteRef string) (*bookingDomain.Quote, error) {
	args := m.Called(ctx, quoteRef)
	q, _ := args.Get(0).(*bookingDomain.Quote)
	return q, args.Error(1)
}

func (m *mockQuoteRepo) FindByCheckoutSession(ctx context.Context, checkoutSessionID string) (*bookingDomain.Quote, error) {
	args := m.Called(ctx, checkoutSessionID)
	q, _ := args.Get(0).(*bookingDomain.Quote)
	return q, args.Error(1)
}

func (m *mockQuoteRepo) FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*bookingDomain.Quote, error) {
	args := m.Called(ctx, sessionID)
	qs, _ := args.Get(0).([]*bookingDomain.Quote)
	return qs, args.Error(1)
}

func (m *mockQuoteRepo) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Quote, int64, error) {
	args := m.Called(ctx, page, limit)
	qs, _ := args.Get(0).([]*bookingDomain.Quote)
	return qs, args.Get(1).(int64), args.Error(2)
}

func (m *mockQuoteRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[string]int64)
	return counts, args.Error(1)
}

func (m *mockQuoteRepo) Save(ctx context.Context, q *bookingDomain.Quote) error {
	return m.Called(ctx, q).Error(0)
}

func (m *mockQuoteRepo) Update(ctx context.Context, q *bookingDomain.Quote) error {
	return m.Called(ctx, q).Error(0)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, sessionID string) (payment.CheckoutResult, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(payment.CheckoutResult), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic == events.TopicQuoteEvents {
		p.events = append(p.events, event)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- Helpers ---

func fillSubmittable(t *testing.T, s *Session) {
	t.Helper()
	store := s.Store()
	_, err := store.UpdateAddress(bookingDomain.RolePickup, bookingDomain.AddressPatch{
		Location: strPtr("1 A St, London SW1A 1AA, UK"), ContactName: strPtr("Pat"), ContactPhone: strPtr("07123456789"),
	})
	require.NoError(t, err)
	_, err = store.UpdateAddress(bookingDomain.RoleDelivery, bookingDomain.AddressPatch{
		Location: strPtr("9 Z St, Leeds LS1 1AA, UK"), ContactName: strPtr("Lee"), ContactPhone: strPtr("07987654321"),
	})
	require.NoError(t, err)
	_, err = store.SetCustomerDetails(bookingDomain.CustomerDetailsPatch{
		Name: strPtr("Sam"), Email: strPtr("sam@example.com"), Phone: strPtr("07111222333"),
	})
	require.NoError(t, err)
}

type quoteFixture struct {
	svc       *QuoteService
	backend   *mockQuoteBackend
	repo      *mockQuoteRepo
	verifier  *mockVerifier
	publisher *recordingPublisher
	session   *Session
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	f := &quoteFixture{
		backend:   &mockQuoteBackend{},
		repo:      &mockQuoteRepo{},
		verifier:  &mockVerifier{},
		publisher: &recordingPublisher{},
	}
	f.svc = NewQuoteService(f.backend, f.repo, f.publisher, f.verifier, zap.NewNop())
	f.session = newTestManager(t, nil).Create()
	return f
}

func existingQuote(t *testing.T, ref string, sessionID uuid.UUID) *bookingDomain.Quote {
	t.Helper()
	q, err := bookingDomain.NewQuote(ref, sessionID, bookingDomain.QuotePayload{Price: 150})
	require.NoError(t, err)
	return q
}

// --- Tests ---

func TestQuoteService_SubmitCreatesThenUpdates(t *testing.T) {
	f := newQuoteFixture(t)
	fillSubmittable(t, f.session)
	ctx := context.Background()

	f.backend.On("CreateQuote", mock.Anything, mock.MatchedBy(func(p bookingDomain.QuotePayload) bool {
		return p.QuotationRef == "" && p.Username == "Sam" && p.Email == "sam@example.com"
	})).Return("QR-1", nil).Once()
	f.repo.On("Save", mock.Anything, mock.MatchedBy(func(q *bookingDomain.Quote) bool {
		return q.QuoteRef() == "QR-1" && q.SessionID() == f.session.ID()
	})).Return(nil).Once()

	res, err := f.svc.SubmitQuote(ctx, f.session)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "QR-1", res.QuoteRef)
	assert.Equal(t, "QR-1", f.session.Snapshot().QuoteRef)

	stored := existingQuote(t, "QR-1", f.session.ID())
	f.backend.On("UpdateQuote", mock.Anything, mock.MatchedBy(func(p bookingDomain.QuotePayload) bool {
		return p.QuotationRef == "QR-1"
	})).Return(nil).Once()
	f.repo.On("FindByRef", mock.Anything, "QR-1").Return(stored, nil).Once()
	f.repo.On("Update", mock.Anything, stored).Return(nil).Once()

	res, err = f.svc.SubmitQuote(ctx, f.session)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "QR-1", res.QuoteRef)
	assert.Equal(t, int64(2), stored.Version())

	assert.Equal(t, []string{events.QuoteCreated, events.QuoteUpdated}, f.publisher.types())
	f.backend.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestQuoteService_SubmitValidatesContacts(t *testing.T) {
	f := newQuoteFixture(t)
	fillSubmittable(t, f.session)
	_, err := f.session.Store().SetCustomerDetails(bookingDomain.CustomerDetailsPatch{Phone: strPtr("12345")})
	require.NoError(t, err)

	_, err = f.svc.SubmitQuote(context.Background(), f.session)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeValidation, de.Code)
	assert.Equal(t, "customerDetails.phone", de.Field)
	f.backend.AssertNotCalled(t, "CreateQuote", mock.Anything, mock.Anything)
}

func TestQuoteService_SubmitPropagatesServiceError(t *testing.T) {
	f := newQuoteFixture(t)
	fillSubmittable(t, f.session)
	upstream := &backend.ServiceError{Endpoint: "/quote/create", Status: 422, Message: "van unavailable"}
	f.backend.On("CreateQuote", mock.Anything, mock.Anything).Return("", upstream)

	_, err := f.svc.SubmitQuote(context.Background(), f.session)
	assert.Same(t, upstream, err)
	assert.Empty(t, f.session.Snapshot().QuoteRef)
	assert.Empty(t, f.publisher.types())
}

func TestQuoteService_SubmitSurvivesLedgerFailure(t *testing.T) {
	f := newQuoteFixture(t)
	fillSubmittable(t, f.session)
	f.backend.On("CreateQuote", mock.Anything, mock.Anything).Return("QR-2", nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	res, err := f.svc.SubmitQuote(context.Background(), f.session)
	require.NoError(t, err)
	assert.Equal(t, "QR-2", res.QuoteRef)
	assert.Empty(t, f.publisher.types())
}

func TestQuoteService_MailAndCheckoutRequireQuoteRef(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()

	assert.True(t, domain.IsValidation(f.svc.SendQuoteMail(ctx, f.session)))
	_, err := f.svc.StartCheckout(ctx, f.session)
	assert.True(t, domain.IsValidation(err))
}

func TestQuoteService_StartCheckout(t *testing.T) {
	f := newQuoteFixture(t)
	_, err := f.session.Store().SetQuoteRef("QR-3")
	require.NoError(t, err)
	stored := existingQuote(t, "QR-3", f.session.ID())

	f.backend.On("CreateCheckoutSession", mock.Anything, "QR-3").Return("cs_3", nil)
	f.repo.On("FindByRef", mock.Anything, "QR-3").Return(stored, nil)
	f.repo.On("Update", mock.Anything, stored).Return(nil)

	id, err := f.svc.StartCheckout(context.Background(), f.session)
	require.NoError(t, err)
	assert.Equal(t, "cs_3", id)
	assert.Equal(t, bookingDomain.QuoteStatusCheckoutStarted, stored.Status())
	assert.Equal(t, "cs_3", stored.CheckoutSessionID())
	assert.Equal(t, []string{events.QuoteCheckoutStarted}, f.publisher.types())
}

func TestQuoteService_ConfirmPayment(t *testing.T) {
	f := newQuoteFixture(t)
	_, err := f.session.Store().SetQuoteRef("QR-4")
	require.NoError(t, err)
	stored := existingQuote(t, "QR-4", f.session.ID())
	require.NoError(t, stored.StartCheckout("cs_4"))

	f.verifier.On("Verify", mock.Anything, "cs_4").Return(payment.CheckoutResult{SessionID: "cs_4", Paid: true, QuoteRef: "QR-4"}, nil)
	f.backend.On("GetOrder", mock.Anything, "cs_4").Return(backend.Order{QuotationRef: "QR-4", BookingRef: "BK-4"}, nil)
	f.repo.On("FindByRef", mock.Anything, "QR-4").Return(stored, nil)
	f.repo.On("Update", mock.Anything, stored).Return(nil)

	ref, err := f.svc.ConfirmPayment(context.Background(), f.session, "cs_4")
	require.NoError(t, err)
	assert.Equal(t, "BK-4", ref)
	assert.Equal(t, "BK-4", f.session.Snapshot().BookingRef)
	assert.Equal(t, bookingDomain.QuoteStatusBooked, stored.Status())
	assert.Equal(t, []string{events.QuoteBooked}, f.publisher.types())
}

func TestQuoteService_ConfirmPaymentRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("verification disabled", func(t *testing.T) {
		f := newQuoteFixture(t)
		svc := NewQuoteService(f.backend, nil, nil, nil, zap.NewNop())
		_, err := svc.ConfirmPayment(ctx, f.session, "cs_1")
		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.CodeForbidden, de.Code)
	})

	t.Run("unpaid", func(t *testing.T) {
		f := newQuoteFixture(t)
		_, _ = f.session.Store().SetQuoteRef("QR-5")
		f.verifier.On("Verify", mock.Anything, "cs_5").Return(payment.CheckoutResult{Paid: false, QuoteRef: "QR-5"}, nil)
		_, err := f.svc.ConfirmPayment(ctx, f.session, "cs_5")
		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.CodeInvalidState, de.Code)
		assert.Empty(t, f.session.Snapshot().BookingRef)
	})

	t.Run("other quote", func(t *testing.T) {
		f := newQuoteFixture(t)
		_, _ = f.session.Store().SetQuoteRef("QR-6")
		f.verifier.On("Verify", mock.Anything, "cs_6").Return(payment.CheckoutResult{Paid: true, QuoteRef: "QR-X"}, nil)
		_, err := f.svc.ConfirmPayment(ctx, f.session, "cs_6")
		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.CodeForbidden, de.Code)
	})
}

func TestQuoteService_MarkBookedByCheckout(t *testing.T) {
	f := newQuoteFixture(t)
	stored := existingQuote(t, "QR-7", uuid.New())
	f.repo.On("FindByRef", mock.Anything, "QR-7").Return(stored, nil)
	f.repo.On("Update", mock.Anything, stored).Return(nil).Once()

	evt := events.CheckoutCompletedEvent{CheckoutSessionID: "cs_7", QuotationRef: "QR-7", BookingRef: "BK-7"}
	ref, err := f.svc.MarkBookedByCheckout(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "QR-7", ref)
	assert.Equal(t, bookingDomain.QuoteStatusBooked, stored.Status())
	assert.Equal(t, "cs_7", stored.CheckoutSessionID())

	ref, err = f.svc.MarkBookedByCheckout(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "QR-7", ref)
	f.repo.AssertNumberOfCalls(t, "Update", 1)

	evt.BookingRef = "BK-other"
	_, err = f.svc.MarkBookedByCheckout(context.Background(), evt)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeConflict, de.Code)
}

func TestQuoteService_MarkBookedByCheckoutSessionOnly(t *testing.T) {
	f := newQuoteFixture(t)
	stored := existingQuote(t, "QR-8", uuid.New())
	require.NoError(t, stored.StartCheckout("cs_8"))
	f.repo.On("FindByCheckoutSession", mock.Anything, "cs_8").Return(stored, nil)
	f.repo.On("Update", mock.Anything, stored).Return(nil)

	ref, err := f.svc.MarkBookedByCheckout(context.Background(), events.CheckoutCompletedEvent{CheckoutSessionID: "cs_8", BookingRef: "BK-8"})
	require.NoError(t, err)
	assert.Equal(t, "QR-8", ref)
}

func TestQuoteService_AdminStats(t *testing.T) {
	f := newQuoteFixture(t)
	f.repo.On("CountByStatus", mock.Anything).Return(map[string]int64{"quoted": 3, "booked": 2}, nil)

	stats, err := f.svc.GetQuoteStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalQuotes)
	assert.Equal(t, int64(2), stats.ByStatus["booked"])

	svc := NewQuoteService(f.backend, nil, nil, nil, zap.NewNop())
	_, _, err = svc.ListAllQuotes(context.Background(), 1, 20)
	assert.Error(t, err)
}
