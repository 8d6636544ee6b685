package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/common/domain"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"gorm.io/gorm"
)

// QuoteModel is the GORM model for the quotes table.
type QuoteModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuoteRef          string          `gorm:"uniqueIndex;not null;size:64"`
	SessionID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status            string          `gorm:"not null;size:30;index"`
	Price             float64         `gorm:"not null"`
	Currency          string          `gorm:"not null;size:3;default:'GBP'"`
	Payload           json.RawMessage `gorm:"type:jsonb;not null"`
	CheckoutSessionID string          `gorm:"size:255;index"`
	BookingRef        string          `gorm:"size:64"`
	BookedAt          *time.Time      `gorm:""`
	Version           int64           `gorm:"not null;default:1"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (QuoteModel) TableName() string {
	return "quotes"
}

// GormQuoteRepository is the GORM-based implementation of QuoteRepository.
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository.
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByRef retrieves a quote by its quotation reference.
func (r *GormQuoteRepository) FindByRef(ctx context.Context, quoteRef string) (*bookingDomain.Quote, error) {
	return r.findOne(ctx, "quote_ref = ?", quoteRef)
}

// FindByCheckoutSession retrieves the quote a checkout session was opened for.
func (r *GormQuoteRepository) FindByCheckoutSession(ctx context.Context, checkoutSessionID string) (*bookingDomain.Quote, error) {
	return r.findOne(ctx, "checkout_session_id = ?", checkoutSessionID)
}

func (r *GormQuoteRepository) findOne(ctx context.Context, where string, arg string) (*bookingDomain.Quote, error) {
	var model QuoteModel
	if err := r.db.WithContext(ctx).Where(where, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Quote", arg)
		}
		return nil, fmt.Errorf("failed to find quote: %w", err)
	}
	return toDomainQuote(&model)
}

// FindBySessionID retrieves the quotes submitted from a wizard session, newest first.
func (r *GormQuoteRepository) FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*bookingDomain.Quote, error) {
	var models []QuoteModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find session quotes: %w", err)
	}
	return toDomainQuotes(models)
}

// ListAll retrieves all quotes with pagination (admin).
func (r *GormQuoteRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Quote, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&QuoteModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	var models []QuoteModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}

	quotes, err := toDomainQuotes(models)
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// CountByStatus returns quote counts grouped by status (admin).
func (r *GormQuoteRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&QuoteModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new quote.
func (r *GormQuoteRepository) Save(ctx context.Context, q *bookingDomain.Quote) error {
	model, err := toQuoteModel(q)
	if err != nil {
		return fmt.Errorf("failed to convert quote to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// Update persists changes to an existing quote with optimistic locking.
// The caller must have called IncrementVersion.
func (r *GormQuoteRepository) Update(ctx context.Context, q *bookingDomain.Quote) error {
	model, err := toQuoteModel(q)
	if err != nil {
		return fmt.Errorf("failed to convert quote to model: %w", err)
	}

	expectedVersion := q.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&QuoteModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"price":               model.Price,
			"payload":             model.Payload,
			"checkout_session_id": model.CheckoutSessionID,
			"booking_ref":         model.BookingRef,
			"booked_at":           model.BookedAt,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update quote: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("quote was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toQuoteModel(q *bookingDomain.Quote) (*QuoteModel, error) {
	payload, err := json.Marshal(q.Payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote payload: %w", err)
	}
	return &QuoteModel{
		ID:                q.ID(),
		QuoteRef:          q.QuoteRef(),
		SessionID:         q.SessionID(),
		Status:            string(q.Status()),
		Price:             q.Price(),
		Currency:          q.Currency(),
		Payload:           payload,
		CheckoutSessionID: q.CheckoutSessionID(),
		BookingRef:        q.BookingRef(),
		BookedAt:          q.BookedAt(),
		Version:           q.Version(),
		CreatedAt:         q.CreatedAt(),
		UpdatedAt:         q.UpdatedAt(),
	}, nil
}

func toDomainQuote(m *QuoteModel) (*bookingDomain.Quote, error) {
	var payload bookingDomain.QuotePayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote payload: %w", err)
	}

	status, err := bookingDomain.ParseQuoteStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructQuote(
		m.ID,
		m.QuoteRef,
		m.SessionID,
		status,
		m.Price,
		m.Currency,
		payload,
		m.CheckoutSessionID,
		m.BookingRef,
		m.BookedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainQuotes(models []QuoteModel) ([]*bookingDomain.Quote, error) {
	quotes := make([]*bookingDomain.Quote, len(models))
	for i := range models {
		q, err := toDomainQuote(&models[i])
		if err != nil {
			return nil, err
		}
		quotes[i] = q
	}
	return quotes, nil
}
