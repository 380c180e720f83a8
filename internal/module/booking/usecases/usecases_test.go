package usecases_test

import (
	"context"
	"fmt"
	"strings"
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

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

type suite struct {
	store     *mocks.MemoryStore
	cache     *mocks.MemoryCache
	publisher *mocks.Publisher
	scheduler *mocks.Scheduler
	cfg       *config.ReservationConfig
	now       time.Time
	uc        usecases.Usecase
	beds      []entity.Bed
}

func reservationConfig() *config.ReservationConfig {
	return &config.ReservationConfig{
		IntakeWindow:         30 * time.Minute,
		PaymentWindow:        24 * time.Hour,
		SweepInterval:        time.Minute,
		SweepBatchSize:       100,
		AllocationRetryLimit: 5,
		AllocationTxTimeout:  3 * time.Second,
		DepositPolicy:        "full",
		DepositPercent:       30,
		NoShowGrace:          24 * time.Hour,
		MaxNights:            30,
	}
}

// setup seeds two dormitory beds (D1-01, D1-02) and one private double (P2-03).
func setup(t *testing.T, tweaks ...func(*config.ReservationConfig)) *suite {
	t.Helper()

	s := &suite{
		store:     mocks.NewMemoryStore(),
		cache:     mocks.NewMemoryCache(),
		publisher: mocks.NewPublisher(),
		scheduler: new(mocks.Scheduler),
		cfg:       reservationConfig(),
		now:       time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, tweak := range tweaks {
		tweak(s.cfg)
	}
	s.scheduler.On("ScheduleExpiry", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for _, b := range []entity.Bed{
		{BedNumber: 1, RoomNumber: 1, RoomName: "Dormitorio 1", RoomType: entity.RoomTypeDormitory, BedType: "bunk", Capacity: 1, PricePerNight: decimal.RequireFromString("15.00")},
		{BedNumber: 2, RoomNumber: 1, RoomName: "Dormitorio 1", RoomType: entity.RoomTypeDormitory, BedType: "bunk", Capacity: 1, PricePerNight: decimal.RequireFromString("15.00")},
		{BedNumber: 3, RoomNumber: 2, RoomName: "Privada 2", RoomType: entity.RoomTypePrivate, BedType: "double", Capacity: 2, PricePerNight: decimal.RequireFromString("40.00")},
	} {
		b := b
		b.Currency = "EUR"
		b.Status = entity.BedStatusAvailable
		require.NoError(t, s.store.InsertBed(ctx, &b))
		s.beds = append(s.beds, b)
	}

	logger := log_internal.GetLogger()
	index := availability.New(s.store, s.cache, logger)
	s.uc = usecases.New(s.store, index, events.New(s.publisher, logger), s.scheduler, s.cfg, logger,
		usecases.WithClock(func() time.Time { return s.now }))
	return s
}

func allocation(key, roomType, checkIn, checkOut string, party int) *request.Allocate {
	return &request.Allocate{
		PilgrimID:      11,
		RoomType:       roomType,
		CheckInDate:    checkIn,
		CheckOutDate:   checkOut,
		PartySize:      party,
		IdempotencyKey: key,
	}
}

func (s *suite) bedLabel(id int64) string {
	for _, b := range s.beds {
		if b.ID == id {
			return b.Label()
		}
	}
	return ""
}

func TestAllocate(t *testing.T) {
	s := setup(t)

	booking, err := s.uc.Allocate(ctx, allocation("key-1", "dormitory", "2024-08-01", "2024-08-03", 1))
	require.NoError(t, err)

	assert.Equal(t, entity.StatusReserved, booking.Status)
	assert.Equal(t, int64(1), booking.Version)
	assert.Equal(t, "D1-01", s.bedLabel(booking.BedID.Int64))
	assert.Equal(t, 2, booking.NumberOfNights)
	assert.True(t, decimal.RequireFromString("30").Equal(booking.TotalAmount), "got %s", booking.TotalAmount)
	assert.Equal(t, "EUR", booking.Currency)
	assert.Equal(t, s.now.Add(30*time.Minute), booking.ReservationExpiresAt)
	assert.Equal(t, s.now.Add(24*time.Hour), booking.PaymentDeadline)
	assert.True(t, strings.HasPrefix(booking.ReferenceNumber, "ALB-20240801-"), booking.ReferenceNumber)
	assert.Len(t, booking.ReferenceNumber, len("ALB-20240801-ABC123"))

	assert.Equal(t, 1, s.publisher.Count(events.BookingTopic(entity.StatusReserved)))
	s.scheduler.AssertCalled(t, "ScheduleExpiry", mock.Anything, booking.ID, booking.ReservationExpiresAt)
}

func TestAllocateValidation(t *testing.T) {
	s := setup(t)

	testCases := []struct {
		name    string
		payload *request.Allocate
	}{
		{name: "malformed check-in", payload: allocation("k", "dormitory", "01/08/2024", "2024-08-03", 1)},
		{name: "check-out before check-in", payload: allocation("k", "dormitory", "2024-08-03", "2024-08-01", 1)},
		{name: "zero nights", payload: allocation("k", "dormitory", "2024-08-03", "2024-08-03", 1)},
		{name: "check-in in the past", payload: allocation("k", "dormitory", "2024-07-31", "2024-08-02", 1)},
		{name: "stay too long", payload: allocation("k", "dormitory", "2024-08-01", "2024-09-01", 1)},
		{name: "empty party", payload: allocation("k", "dormitory", "2024-08-01", "2024-08-03", 0)},
		{name: "blank idempotency key", payload: allocation("  ", "dormitory", "2024-08-01", "2024-08-03", 1)},
		{name: "unknown room type", payload: allocation("k", "suite", "2024-08-01", "2024-08-03", 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.uc.Allocate(ctx, tc.payload)
			assert.True(t, errors.Is(err, errors.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, s.store.Bookings())
}

func TestAllocateIsIdempotent(t *testing.T) {
	s := setup(t)

	first, err := s.uc.Allocate(ctx, allocation("key-1", "dormitory", "2024-08-01", "2024-08-03", 1))
	require.NoError(t, err)

	again, err := s.uc.Allocate(ctx, allocation("key-1", "dormitory", "2024-08-01", "2024-08-03", 1))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.ReferenceNumber, again.ReferenceNumber)
	assert.Len(t, s.store.Bookings(), 1)

	t.Run("same key for another stay", func(t *testing.T) {
		_, err := s.uc.Allocate(ctx, allocation("key-1", "dormitory", "2024-08-02", "2024-08-04", 1))
		assert.True(t, errors.Is(err, errors.CodeValidation), "got %v", err)
		assert.Len(t, s.store.Bookings(), 1)
	})
}

func TestAllocateNoAvailability(t *testing.T) {
	s := setup(t)

	t.Run("party larger than any bed", func(t *testing.T) {
		_, err := s.uc.Allocate(ctx, allocation("big", "private", "2024-08-01", "2024-08-03", 3))
		assert.True(t, errors.Is(err, errors.CodeNoAvailability), "got %v", err)
	})

	t.Run("every dormitory bed taken", func(t *testing.T) {
		_, err := s.uc.Allocate(ctx, allocation("a", "dormitory", "2024-08-01", "2024-08-03", 1))
		require.NoError(t, err)
		_, err = s.uc.Allocate(ctx, allocation("b", "dormitory", "2024-08-02", "2024-08-04", 1))
		require.NoError(t, err)

		_, err = s.uc.Allocate(ctx, allocation("c", "dormitory", "2024-08-02", "2024-08-03", 1))
		assert.True(t, errors.Is(err, errors.CodeNoAvailability), "got %v", err)
	})
}

func TestAllocateRespectsHalfOpenRanges(t *testing.T) {
	s := setup(t)

	first, err := s.uc.Allocate(ctx, allocation("a", "dormitory", "2024-08-01", "2024-08-04", 1))
	require.NoError(t, err)
	assert.Equal(t, "D1-01", s.bedLabel(first.BedID.Int64))

	overlapping, err := s.uc.Allocate(ctx, allocation("b", "dormitory", "2024-08-03", "2024-08-05", 1))
	require.NoError(t, err)
	assert.Equal(t, "D1-02", s.bedLabel(overlapping.BedID.Int64))

	// check-out day of the first stay is free again
	adjacent, err := s.uc.Allocate(ctx, allocation("c", "dormitory", "2024-08-04", "2024-08-06", 1))
	require.NoError(t, err)
	assert.Equal(t, "D1-01", s.bedLabel(adjacent.BedID.Int64))
}

func TestAllocateSkipsBedsInMaintenance(t *testing.T) {
	s := setup(t)

	_, err := s.uc.SetBedStatus(ctx, s.beds[0].ID, &request.SetBedStatus{Status: "maintenance", Notes: "broken slat"})
	require.NoError(t, err)

	booking, err := s.uc.Allocate(ctx, allocation("a", "dormitory", "2024-08-01", "2024-08-02", 1))
	require.NoError(t, err)
	assert.Equal(t, "D1-02", s.bedLabel(booking.BedID.Int64))
}

func TestAllocateLooksPastOutdatedCache(t *testing.T) {
	s := setup(t)

	// both dormitory beds cached as taken by a booking the sweeper has since released
	for _, bed := range s.beds[:2] {
		require.NoError(t, s.cache.Set(ctx, bed.ID, []entity.Interval{{
			BedID: bed.ID, BookingID: 99,
			CheckIn:  time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
			CheckOut: time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
		}}))
	}

	booking, err := s.uc.Allocate(ctx, allocation("key-1", "dormitory", "2024-08-02", "2024-08-04", 1))
	require.NoError(t, err)
	assert.Equal(t, "D1-01", s.bedLabel(booking.BedID.Int64))
}

func TestConcurrentAllocationsNeverDoubleBook(t *testing.T) {
	s := setup(t)
	// a cache that never forgets: every request believes every bed is free
	s.cache.Stale = true

	const workers = 24
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := 1 + i%4
			payload := allocation(fmt.Sprintf("key-%d", i), "dormitory",
				fmt.Sprintf("2024-08-%02d", start), fmt.Sprintf("2024-08-%02d", start+1+i%3), 1)
			_, results[i] = s.uc.Allocate(ctx, payload)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, errors.CodeNoAvailability), "got %v", err)
	}
	assert.Positive(t, succeeded)

	active := []entity.Booking{}
	for _, b := range s.store.Bookings() {
		if b.Status.Active() {
			active = append(active, b)
		}
	}
	assert.Len(t, active, succeeded)

	for i := range active {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if a.BedID.Int64 == b.BedID.Int64 {
				assert.False(t, a.Range().Overlaps(b.Range()),
					"bookings %d and %d overlap on bed %d", a.ID, b.ID, a.BedID.Int64)
			}
		}
	}
}

func TestConcurrentAllocationsForOneBed(t *testing.T) {
	s := setup(t)
	s.cache.Stale = true

	const workers = 16
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.uc.Allocate(ctx, allocation(fmt.Sprintf("p-%d", i), "private", "2024-08-10", "2024-08-12", 2))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestTransitions(t *testing.T) {
	t.Run("stay from reservation to check-out", func(t *testing.T) {
		s := setup(t)
		booking, err := s.uc.Allocate(ctx, allocation("a", "dormitory", "2024-08-01", "2024-08-03", 1))
		require.NoError(t, err)

		booking, err = s.uc.InitiatePayment(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusAwaitingPayment, booking.Status)

		_, err = s.uc.RecordPayment(ctx, &request.Payment{BookingID: booking.ID, Amount: "30.00", Currency: "EUR", TransactionID: "tx-1", Succeeded: true})
		require.NoError(t, err)

		booking, err = s.uc.CheckIn(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCheckedIn, booking.Status)
		assert.True(t, booking.CheckedInAt.Valid)

		s.now = s.now.Add(48 * time.Hour)
		booking, err = s.uc.CheckOut(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCheckedOut, booking.Status)
		assert.Equal(t, int64(5), booking.Version)

		_, err = s.uc.Cancel(ctx, booking.ID, "too late", lifecycle.ActorStaff)
		assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "got %v", err)
	})

	t.Run("cancel releases the bed", func(t *testing.T) {
		s := setup(t)
		booking, err := s.uc.Allocate(ctx, allocation("a", "private", "2024-08-01", "2024-08-03", 2))
		require.NoError(t, err)

		_, err = s.uc.Allocate(ctx, allocation("b", "private", "2024-08-02", "2024-08-03", 1))
		require.True(t, errors.Is(err, errors.CodeNoAvailability))

		cancelled, err := s.uc.Cancel(ctx, booking.ID, "change of plans", lifecycle.ActorPilgrim)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCancelled, cancelled.Status)
		assert.Equal(t, "change of plans", cancelled.CancellationReason)
		assert.Equal(t, 1, s.publisher.Count(events.BookingTopic(entity.StatusCancelled)))

		_, err = s.uc.Allocate(ctx, allocation("b", "private", "2024-08-02", "2024-08-03", 1))
		assert.NoError(t, err)
	})

	t.Run("check-in outside the stay", func(t *testing.T) {
		s := setup(t)
		booking, err := s.uc.Allocate(ctx, allocation("a", "dormitory", "2024-08-05", "2024-08-07", 1))
		require.NoError(t, err)
		_, err = s.uc.RecordPayment(ctx, &request.Payment{BookingID: booking.ID, Amount: "30", Currency: "EUR", TransactionID: "tx-1", Succeeded: true})
		require.NoError(t, err)

		_, err = s.uc.CheckIn(ctx, booking.ID)
		assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "got %v", err)

		_, err = s.uc.MarkNoShow(ctx, booking.ID)
		assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "got %v", err)

		s.now = time.Date(2024, 8, 6, 12, 0, 0, 0, time.UTC)
		noShow, err := s.uc.MarkNoShow(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusNoShow, noShow.Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		s := setup(t)
		_, err := s.uc.GetBooking(ctx, 404)
		assert.True(t, errors.Is(err, errors.CodeNotFound), "got %v", err)
	})
}

func TestTransitionRetriesOnVersionConflict(t *testing.T) {
	logger := log_internal.GetLogger()
	booking := entity.Booking{ID: 9, Status: entity.StatusReserved, Version: 1}
	moved := booking
	moved.Version = 2

	t.Run("second attempt wins", func(t *testing.T) {
		repoMock := mocks.NewRepositories(t)
		uc := usecases.New(repoMock, availability.New(repoMock, nil, logger), events.New(mocks.NewPublisher(), logger), nil, reservationConfig(), logger)

		repoMock.On("FindBookingByID", mock.Anything, int64(9)).Return(booking, nil).Once()
		repoMock.On("UpdateBookingStatus", mock.Anything, mock.Anything, int64(1)).Return(errors.VersionConflict("booking 9 was modified concurrently")).Once()
		repoMock.On("FindBookingByID", mock.Anything, int64(9)).Return(moved, nil).Once()
		repoMock.On("UpdateBookingStatus", mock.Anything, mock.Anything, int64(2)).Return(nil).Once()

		got, err := uc.Cancel(ctx, 9, "", lifecycle.ActorPilgrim)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCancelled, got.Status)
		assert.Equal(t, int64(3), got.Version)
	})

	t.Run("gives up after the retry limit", func(t *testing.T) {
		repoMock := mocks.NewRepositories(t)
		cfg := reservationConfig()
		cfg.AllocationRetryLimit = 2
		uc := usecases.New(repoMock, availability.New(repoMock, nil, logger), events.New(mocks.NewPublisher(), logger), nil, cfg, logger)

		repoMock.On("FindBookingByID", mock.Anything, int64(9)).Return(booking, nil).Times(2)
		repoMock.On("UpdateBookingStatus", mock.Anything, mock.Anything, int64(1)).Return(errors.VersionConflict("booking 9 was modified concurrently")).Times(2)

		_, err := uc.Cancel(ctx, 9, "", lifecycle.ActorPilgrim)
		assert.True(t, errors.Retryable(err), "got %v", err)
	})
}
