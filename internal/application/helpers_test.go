package application

import (
	"context"
	"testing"
	"time"

	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/pricing"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.April, 7, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newTestStore() *Store {
	return NewStore(bookingDomain.NewDraft(testNow), zap.NewNop())
}

func setLocation(t *testing.T, s *Store, role bookingDomain.Role, location string) {
	t.Helper()
	_, err := s.UpdateAddress(role, bookingDomain.AddressPatch{Location: strPtr(location)})
	require.NoError(t, err)
}

type priceReply struct {
	resp pricing.PriceResponse
	err  error
}

type priceCall struct {
	req   pricing.PriceRequest
	reply chan priceReply
}

// fakePricing hands every request to the test and blocks until it is answered.
type fakePricing struct {
	calls chan priceCall
}

func newFakePricing() *fakePricing {
	return &fakePricing{calls: make(chan priceCall, 8)}
}

func (f *fakePricing) Price(ctx context.Context, req pricing.PriceRequest) (pricing.PriceResponse, error) {
	c := priceCall{req: req, reply: make(chan priceReply, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return pricing.PriceResponse{}, ctx.Err()
	}
}

func (f *fakePricing) next(t *testing.T) priceCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a price request")
		return priceCall{}
	}
}

// instantPricing answers every request immediately with a fixed price.
type instantPricing struct {
	price float64
}

func (p instantPricing) Price(context.Context, pricing.PriceRequest) (pricing.PriceResponse, error) {
	return pricing.PriceResponse{Price: p.price}, nil
}

func pricingResponse(price float64) pricing.PriceResponse {
	return pricing.PriceResponse{Price: price}
}
