package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bed-booking-service/config"
	"bed-booking-service/internal/module/booking/availability"
	"bed-booking-service/internal/module/booking/events"
	"bed-booking-service/internal/module/booking/lifecycle"
	"bed-booking-service/internal/module/booking/mocks"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/models/request"
	"bed-booking-service/internal/module/booking/usecases"
	"bed-booking-service/internal/pkg/errors"
	log_internal "bed-booking-service/internal/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *suite) reserve(t *testing.T) entity.Booking {
	t.Helper()
	booking, err := s.uc.Allocate(ctx, allocation("key-1", "dormitory", "2024-08-01", "2024-08-03", 1))
	require.NoError(t, err)
	return booking
}

func payment(bookingID int64, amount, tx string) *request.Payment {
	return &request.Payment{
		BookingID:       bookingID,
		Amount:          amount,
		Currency:        "EUR",
		TransactionID:   tx,
		Succeeded:       true,
		ReceiptNumber:   "R-" + tx,
		GatewayResponse: map[string]interface{}{"status": "captured"},
	}
}

func TestRecordPaymentConfirms(t *testing.T) {
	s := setup(t)
	booking := s.reserve(t)

	confirmed, err := s.uc.RecordPayment(ctx, payment(booking.ID, "30.00", "tx-1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, confirmed.Status)
	assert.Equal(t, int64(2), confirmed.Version)

	stored, err := s.store.FindPaymentByTransactionID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, stored.Status)
	assert.Equal(t, entity.PaymentTypeFull, stored.PaymentType)
	assert.False(t, stored.RefundRequired)
	require.NotNil(t, stored.GatewayResponse)
	assert.JSONEq(t, `{"status":"captured"}`, string(*stored.GatewayResponse))

	assert.Equal(t, 1, s.publisher.Count(events.TopicPaymentRecorded))
	assert.Equal(t, 1, s.publisher.Count(events.BookingTopic(entity.StatusConfirmed)))

	t.Run("replayed callback changes nothing", func(t *testing.T) {
		again, err := s.uc.RecordPayment(ctx, payment(booking.ID, "30.00", "tx-1"))
		require.NoError(t, err)
		assert.Equal(t, entity.StatusConfirmed, again.Status)
		assert.Equal(t, int64(2), again.Version)
		assert.Equal(t, 1, s.publisher.Count(events.TopicPaymentRecorded))
	})

	t.Run("transaction id reused for another booking", func(t *testing.T) {
		_, err := s.uc.RecordPayment(ctx, payment(booking.ID+100, "30.00", "tx-1"))
		assert.True(t, errors.Is(err, errors.CodeValidation), "got %v", err)
	})

	t.Run("balance on a confirmed stay", func(t *testing.T) {
		same, err := s.uc.RecordPayment(ctx, payment(booking.ID, "5.00", "tx-extra"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), same.Version)

		stored, err := s.store.FindPaymentByTransactionID(ctx, "tx-extra")
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentTypeBalance, stored.PaymentType)
	})
}

func TestRecordPaymentDepositPolicy(t *testing.T) {
	s := setup(t, func(cfg *config.ReservationConfig) {
		cfg.DepositPolicy = "deposit"
		cfg.DepositPercent = 30
	})
	booking := s.reserve(t)

	// 30% of 30.00 is 9.00
	partial, err := s.uc.RecordPayment(ctx, payment(booking.ID, "5", "tx-1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAwaitingPayment, partial.Status)

	stored, err := s.store.FindPaymentByTransactionID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentTypeDeposit, stored.PaymentType)

	confirmed, err := s.uc.RecordPayment(ctx, payment(booking.ID, "4", "tx-2"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, confirmed.Status)
	assert.Equal(t, int64(3), confirmed.Version)
}

// lockstepStore holds the first two payment listings until both have read, so two
// payments sum the same rows before either is written.
type lockstepStore struct {
	*mocks.MemoryStore
	mu      sync.Mutex
	reads   int
	release chan struct{}
}

func (s *lockstepStore) ListPaymentsByBookingID(ctx context.Context, bookingID int64) ([]entity.Payment, error) {
	payments, err := s.MemoryStore.ListPaymentsByBookingID(ctx, bookingID)

	s.mu.Lock()
	s.reads++
	n := s.reads
	if n == 2 {
		close(s.release)
	}
	s.mu.Unlock()

	if n <= 2 {
		select {
		case <-s.release:
		case <-time.After(time.Second):
		}
	}
	return payments, err
}

func TestConcurrentPartialPaymentsConfirm(t *testing.T) {
	s := setup(t)
	booking := s.reserve(t)

	_, err := s.uc.InitiatePayment(ctx, booking.ID)
	require.NoError(t, err)

	store := &lockstepStore{MemoryStore: s.store, release: make(chan struct{})}
	logger := log_internal.GetLogger()
	uc := usecases.New(store, availability.New(store, s.cache, logger), events.New(s.publisher, logger), s.scheduler, s.cfg, logger,
		usecases.WithClock(func() time.Time { return s.now }))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tx := range []string{"tx-a", "tx-b"} {
		wg.Add(1)
		go func(i int, tx string) {
			defer wg.Done()
			_, errs[i] = uc.RecordPayment(ctx, payment(booking.ID, "15.00", tx))
		}(i, tx)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	payments, err := s.store.ListPaymentsByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	current, err := s.uc.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, current.Status)
	assert.Equal(t, int64(4), current.Version)
	assert.Equal(t, 1, s.publisher.Count(events.BookingTopic(entity.StatusConfirmed)))
}

func TestPartialPaymentBumpsVersion(t *testing.T) {
	s := setup(t, func(cfg *config.ReservationConfig) {
		cfg.DepositPolicy = "deposit"
		cfg.DepositPercent = 50
	})
	booking := s.reserve(t)

	// 50% of 30.00 is 15.00
	first, err := s.uc.RecordPayment(ctx, payment(booking.ID, "5", "tx-1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAwaitingPayment, first.Status)
	assert.Equal(t, int64(2), first.Version)

	second, err := s.uc.RecordPayment(ctx, payment(booking.ID, "5", "tx-2"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAwaitingPayment, second.Status)
	assert.Equal(t, int64(3), second.Version)

	stored, err := s.uc.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Version)
	assert.Equal(t, 1, s.publisher.Count(events.BookingTopic(entity.StatusAwaitingPayment)))
}

func TestRecordPaymentAfterDeadline(t *testing.T) {
	s := setup(t)
	booking := s.reserve(t)

	s.now = s.now.Add(25 * time.Hour)

	_, err := s.uc.RecordPayment(ctx, payment(booking.ID, "30", "tx-late"))
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "got %v", err)

	stored, err := s.store.FindPaymentByTransactionID(ctx, "tx-late")
	require.NoError(t, err)
	assert.True(t, stored.RefundRequired)
	assert.Equal(t, 1, s.publisher.Count(events.TopicRefundRequired))
	assert.Equal(t, 0, s.publisher.Count(events.TopicPaymentRecorded))

	current, err := s.uc.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReserved, current.Status)

	t.Run("replay still reports the refund", func(t *testing.T) {
		_, err := s.uc.RecordPayment(ctx, payment(booking.ID, "30", "tx-late"))
		assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "got %v", err)
		assert.Equal(t, 1, s.publisher.Count(events.TopicRefundRequired))
	})
}

func TestRecordPaymentOnCancelledBooking(t *testing.T) {
	s := setup(t)
	booking := s.reserve(t)

	_, err := s.uc.Cancel(ctx, booking.ID, "", lifecycle.ActorPilgrim)
	require.NoError(t, err)

	_, err = s.uc.RecordPayment(ctx, payment(booking.ID, "30", "tx-1"))
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "got %v", err)
	assert.Equal(t, 1, s.publisher.Count(events.TopicRefundRequired))
}

func TestRecordFailedPayment(t *testing.T) {
	s := setup(t)
	booking := s.reserve(t)

	failed := payment(booking.ID, "30", "tx-declined")
	failed.Succeeded = false

	got, err := s.uc.RecordPayment(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReserved, got.Status)
	assert.Equal(t, int64(1), got.Version)

	stored, err := s.store.FindPaymentByTransactionID(ctx, "tx-declined")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, stored.Status)

	// a failed attempt does not count towards the total
	confirmed, err := s.uc.RecordPayment(ctx, payment(booking.ID, "30", "tx-ok"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, confirmed.Status)
}

func TestRecordPaymentValidation(t *testing.T) {
	s := setup(t)
	booking := s.reserve(t)

	wrongCurrency := payment(booking.ID, "30", "tx-1")
	wrongCurrency.Currency = "USD"

	testCases := []struct {
		name    string
		payload *request.Payment
		code    string
	}{
		{name: "not a number", payload: payment(booking.ID, "thirty", "tx-1"), code: errors.CodeValidation},
		{name: "negative amount", payload: payment(booking.ID, "-1", "tx-1"), code: errors.CodeValidation},
		{name: "zero amount", payload: payment(booking.ID, "0", "tx-1"), code: errors.CodeValidation},
		{name: "missing transaction id", payload: payment(booking.ID, "30", " "), code: errors.CodeValidation},
		{name: "currency mismatch", payload: wrongCurrency, code: errors.CodeValidation},
		{name: "unknown booking", payload: payment(booking.ID+100, "30", "tx-2"), code: errors.CodeNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.uc.RecordPayment(ctx, tc.payload)
			assert.True(t, errors.Is(err, tc.code), "got %v", err)
		})
	}
	assert.Equal(t, 0, s.publisher.Count(events.TopicPaymentRecorded))
}
