package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/reliancemove/service-quote/internal/common/domain"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PlaceLookup resolves address predictions and postcodes.
type PlaceLookup interface {
	Autocomplete(ctx context.Context, place string) ([]bookingDomain.Prediction, error)
	PostalCode(ctx context.Context, placeID string) (string, error)
}

// LookupCache stores lookup results by key.
type LookupCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LookupService serves autocomplete and postcode lookups through a shared
// cache and an outbound rate limit.
type LookupService struct {
	places  PlaceLookup
	cache   LookupCache
	ttl     time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLookupService creates a new LookupService.
func NewLookupService(places PlaceLookup, cache LookupCache, ttl time.Duration, limiter *rate.Limiter, logger *zap.Logger) *LookupService {
	return &LookupService{
		places:  places,
		cache:   cache,
		ttl:     ttl,
		limiter: limiter,
		logger:  logger,
	}
}

// Autocomplete returns address predictions for query. A blank query yields no
// predictions without a backend call.
func (s *LookupService) Autocomplete(ctx context.Context, query string) ([]bookingDomain.Prediction, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []bookingDomain.Prediction{}, nil
	}

	key := "autocomplete:" + strings.ToLower(query)
	var preds []bookingDomain.Prediction
	if s.cached(ctx, key, &preds) {
		return preds, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	preds, err := s.places.Autocomplete(ctx, query)
	if err != nil {
		s.logger.Warn("autocomplete lookup failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	if preds == nil {
		preds = []bookingDomain.Prediction{}
	}
	s.store(ctx, key, preds)
	return preds, nil
}

// PostalCode returns the postcode for a place.
func (s *LookupService) PostalCode(ctx context.Context, placeID string) (string, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return "", domain.NewFieldValidationError("placeId", "place ID is required")
	}

	key := "postcode:" + placeID
	var postcode string
	if s.cached(ctx, key, &postcode) {
		return postcode, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	postcode, err := s.places.PostalCode(ctx, placeID)
	if err != nil {
		s.logger.Warn("postcode lookup failed", zap.String("place_id", placeID), zap.Error(err))
		return "", err
	}
	s.store(ctx, key, postcode)
	return postcode, nil
}

func (s *LookupService) cached(ctx context.Context, key string, out any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("lookup cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("lookup cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *LookupService) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}
