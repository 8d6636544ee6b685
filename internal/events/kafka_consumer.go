package events

import (
	"context"

	"github.com/reliancemove/service-quote/internal/application"
	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/reliancemove/service-quote/internal/common/kafka"
	protoEvents "github.com/reliancemove/service-quote/internal/proto/events"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingRecorder records a booking reported by the payment side.
type BookingRecorder interface {
	MarkBookedByCheckout(ctx context.Context, evt protoEvents.CheckoutCompletedEvent) (string, error)
}

// SessionFinder locates the live wizard session holding a quotation reference.
type SessionFinder interface {
	FindByQuoteRef(quoteRef string) (*application.Session, bool)
}

// PaymentEventConsumer listens to payment events and marks the quotes booked.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	recorder BookingRecorder
	sessions SessionFinder
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	recorder BookingRecorder,
	sessions SessionFinder,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, protoEvents.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		recorder: recorder,
		sessions: sessions,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

// HandleMessage processes one payment topic message. Malformed messages are
// skipped; a returned error leaves the message uncommitted.
func (c *PaymentEventConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case protoEvents.PaymentCheckoutCompleted:
		return c.handleCheckoutCompleted(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handleCheckoutCompleted(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt protoEvents.CheckoutCompletedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse CheckoutCompletedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing checkout completed event",
		zap.String("quote_ref", evt.QuotationRef),
		zap.String("checkout_session_id", evt.CheckoutSessionID),
	)

	quoteRef, err := c.recorder.MarkBookedByCheckout(ctx, evt)
	if err != nil {
		if domain.IsValidation(err) || domain.IsNotFound(err) {
			c.logger.Warn("skipping checkout completed event",
				zap.String("quote_ref", evt.QuotationRef),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to mark quote booked",
			zap.String("quote_ref", evt.QuotationRef),
			zap.Error(err),
		)
		return err
	}

	if sess, ok := c.sessions.FindByQuoteRef(quoteRef); ok {
		if _, err := sess.Store().SetBookingRef(evt.BookingRef); err != nil {
			c.logger.Debug("session closed before booking arrived",
				zap.String("session_id", sess.ID().String()),
			)
		}
	}

	c.logger.Info("quote booked after checkout",
		zap.String("quote_ref", quoteRef),
		zap.String("booking_ref", evt.BookingRef),
	)
	return nil
}
