package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/reliancemove/service-quote/internal/common/domain"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/pricing"
	"go.uber.org/zap"
)

// PriceTrigger asks the pricing service for a new price whenever a
// price-affecting group changes. Every request is tagged with a generation and
// only the response for the latest generation may commit.
type PriceTrigger struct {
	store   *Store
	pricing pricing.PricingService
	logger  *zap.Logger

	generation  atomic.Uint64
	ctx         context.Context
	cancel      context.CancelFunc
	inflight    sync.WaitGroup
	unsubscribe func()
}

// NewPriceTrigger creates a trigger for store. Call Start to begin watching.
func NewPriceTrigger(store *Store, svc pricing.PricingService, logger *zap.Logger) *PriceTrigger {
	ctx, cancel := context.WithCancel(context.Background())
	return &PriceTrigger{
		store:   store,
		pricing: svc,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes the trigger to the price-affecting groups.
func (t *PriceTrigger) Start() {
	t.unsubscribe = t.store.Subscribe(bookingDomain.PriceGroups, func(Change) {
		t.Trigger()
	})
}

// Stop unsubscribes and cancels in-flight requests. Late responses are dropped.
func (t *PriceTrigger) Stop() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.generation.Add(1)
	t.cancel()
}

// Wait blocks until every issued request has finished.
func (t *PriceTrigger) Wait() {
	t.inflight.Wait()
}

// Generation returns the token of the most recently issued request.
func (t *PriceTrigger) Generation() uint64 {
	return t.generation.Load()
}

// Trigger builds a pricing request from the current draft and issues it. It
// returns the generation issued, or the validation error that prevented a
// request, in which case the price is cleared. Either way, responses for
// earlier generations no longer commit.
func (t *PriceTrigger) Trigger() (uint64, error) {
	var (
		gen     uint64
		req     pricing.PriceRequest
		normErr error
	)
	_, err := t.store.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		gen = t.generation.Add(1)
		req, normErr = pricing.Normalize(d.Snapshot())
		if normErr != nil {
			return d.MarkPriceIdle(), nil
		}
		return d.MarkPricePending(), nil
	})
	if err == nil {
		err = normErr
	}
	if err != nil {
		t.logger.Debug("price request not issued", zap.Uint64("generation", gen), zap.Error(err))
		return 0, err
	}

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.run(gen, req)
	}()
	return gen, nil
}

func (t *PriceTrigger) run(gen uint64, req pricing.PriceRequest) {
	resp, fetchErr := t.pricing.Price(t.ctx, req)

	_, err := t.store.update(func(d *bookingDomain.Draft) (bookingDomain.Groups, error) {
		if t.generation.Load() != gen {
			return nil, domain.ErrStaleResponse
		}
		if fetchErr != nil {
			return d.MarkPriceFailed(), nil
		}
		return d.SetTotalPrice(resp.Price), nil
	})

	switch {
	case errors.Is(err, domain.ErrStaleResponse), errors.Is(err, ErrSessionClosed):
		t.logger.Debug("price response discarded", zap.Uint64("generation", gen), zap.NamedError("reason", err))
	case fetchErr != nil:
		t.logger.Warn("price request failed", zap.Uint64("generation", gen), zap.Error(fetchErr))
	}
}
