package booking

import (
	"context"

	"github.com/google/uuid"
)

// QuoteRepository defines the persistence contract for the submitted-quote ledger.
type QuoteRepository interface {
	// FindByRef retrieves a quote by its quotation reference.
	FindByRef(ctx context.Context, quoteRef string) (*Quote, error)

	// FindByCheckoutSession retrieves the quote a checkout session was opened for.
	FindByCheckoutSession(ctx context.Context, checkoutSessionID string) (*Quote, error)

	// FindBySessionID retrieves the quotes submitted from a wizard session, newest first.
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*Quote, error)

	// ListAll retrieves all quotes with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Quote, int64, error)

	// CountByStatus returns quote counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new quote.
	Save(ctx context.Context, quote *Quote) error

	// Update persists changes to an existing quote with optimistic locking.
	Update(ctx context.Context, quote *Quote) error
}
