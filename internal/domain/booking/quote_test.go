package booking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuote(t *testing.T) *Quote {
	t.Helper()
	q, err := NewQuote("QR-1", uuid.New(), QuotePayload{Price: 180})
	require.NoError(t, err)
	return q
}

func TestNewQuote(t *testing.T) {
	q := newTestQuote(t)
	assert.Equal(t, QuoteStatusQuoted, q.Status())
	assert.Equal(t, "QR-1", q.Payload().QuotationRef)
	assert.Equal(t, 180.0, q.Price())
	assert.Equal(t, domain.CurrencyGBP, q.Currency())
	assert.Equal(t, int64(1), q.Version())

	_, err := NewQuote("", uuid.New(), QuotePayload{})
	assert.True(t, domain.IsValidation(err))
	_, err = NewQuote("QR-2", uuid.Nil, QuotePayload{})
	assert.True(t, domain.IsValidation(err))
}

func TestQuote_Lifecycle(t *testing.T) {
	q := newTestQuote(t)

	require.NoError(t, q.Revise(QuotePayload{Price: 200}))
	assert.Equal(t, 200.0, q.Price())
	assert.Equal(t, "QR-1", q.Payload().QuotationRef)

	err := q.MarkBooked("BK-1")
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeInvalidState, de.Code)

	require.NoError(t, q.StartCheckout("cs_test_1"))
	assert.Equal(t, QuoteStatusCheckoutStarted, q.Status())
	assert.Equal(t, "cs_test_1", q.CheckoutSessionID())

	require.NoError(t, q.MarkBooked("BK-1"))
	assert.Equal(t, QuoteStatusBooked, q.Status())
	assert.NotNil(t, q.BookedAt())
	assert.True(t, q.Status().IsTerminal())

	assert.Error(t, q.Revise(QuotePayload{}))
	assert.Error(t, q.StartCheckout("cs_test_2"))
}

func TestParseQuoteStatus(t *testing.T) {
	s, err := ParseQuoteStatus("checkout_started")
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusCheckoutStarted, s)

	_, err = ParseQuoteStatus("paid")
	assert.Error(t, err)
}
