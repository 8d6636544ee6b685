//go:build integration

package main_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/reliancemove/service-quote/internal/proto/events"
	"github.com/reliancemove/service-quote/internal/repository"
)

// TestCheckoutCompleted_BooksQuote verifies that a CheckoutCompletedEvent on
// payment.events moves the ledger quote to "booked", publishes quote.booked
// and writes the booking reference into the live wizard session.
func TestCheckoutCompleted_BooksQuote(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupQuoteStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()
	defer stack.Sessions.CloseAll()

	sess := stack.Sessions.Create()
	quoteRef := fmt.Sprintf("QT-%s", uuid.New().String()[:6])
	_, err := sess.Store().SetQuoteRef(quoteRef)
	require.NoError(t, err)
	quoteID := seedQuoteInCheckout(t, infra.DB, quoteRef, "cs_test_int", sess.ID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := events.CheckoutCompletedEvent{
		CheckoutSessionID: "cs_test_int",
		QuotationRef:      quoteRef,
		BookingRef:        "BK-1001",
		AmountTotal:       18950,
		Currency:          "gbp",
		OccurredAt:        time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, events.TopicPaymentEvents,
		"service-payment", events.PaymentCheckoutCompleted, evt)

	model := waitForQuoteStatus(t, infra.DB, quoteID, "booked", 15*time.Second)
	assert.Equal(t, "BK-1001", model.BookingRef)
	assert.NotNil(t, model.BookedAt)
	assert.Equal(t, int64(3), model.Version)

	require.Eventually(t, func() bool {
		return sess.Snapshot().BookingRef == "BK-1001"
	}, 5*time.Second, 100*time.Millisecond, "live session did not receive the booking reference")

	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicQuoteEvents,
		events.QuoteBooked, 15*time.Second)

	var booked events.QuoteEvent
	require.NoError(t, ce.ParseData(&booked))
	assert.Equal(t, quoteRef, booked.QuoteRef)
	assert.Equal(t, "BK-1001", booked.BookingRef)
	assert.Equal(t, "booked", booked.Status)
}

// TestRedisLookupCache_RoundTrip checks the cache against a real Redis.
func TestRedisLookupCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = rdb.Close() }()
	cache := repository.NewRedisLookupCache(rdb, "test:")

	_, ok, err := cache.Get(ctx, "postcode:p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "postcode:p1", []byte(`"SW1A 2AA"`), time.Minute))
	got, ok, err := cache.Get(ctx, "postcode:p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"SW1A 2AA"`, string(got))

	ttl, err := rdb.TTL(ctx, "test:postcode:p1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
