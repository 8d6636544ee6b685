package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// CheckoutResult is the outcome of a checkout session as reported by Stripe.
type CheckoutResult struct {
	SessionID   string
	Paid        bool
	QuoteRef    string
	AmountTotal int64
	Currency    string
}

// StripeVerifier looks up checkout sessions to confirm they were paid.
type StripeVerifier struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeVerifier creates a verifier using secretKey. backends may be nil for the live API.
func NewStripeVerifier(secretKey string, backends *stripe.Backends, logger *zap.Logger) *StripeVerifier {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeVerifier{api: api, logger: logger}
}

// Verify fetches the checkout session. The quotation reference is read from
// client_reference_id, falling back to the quotationRef metadata key.
func (v *StripeVerifier) Verify(ctx context.Context, sessionID string) (CheckoutResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := v.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get checkout session %s: %w", sessionID, err)
	}

	ref := sess.ClientReferenceID
	if ref == "" && sess.Metadata != nil {
		ref = sess.Metadata["quotationRef"]
	}

	res := CheckoutResult{
		SessionID:   sess.ID,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		QuoteRef:    ref,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
	}
	v.logger.Info("checkout session verified",
		zap.String("checkout_session_id", res.SessionID),
		zap.Bool("paid", res.Paid),
		zap.String("quote_ref", res.QuoteRef),
	)
	return res, nil
}
