package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/pkg/errors"
)

// MemoryStore is an in-memory Repositories. Every method holds one lock, which gives
// the serializable semantics of the Postgres store without a database.
type MemoryStore struct {
	mu       sync.Mutex
	beds     map[int64]entity.Bed
	bookings map[int64]entity.Booking
	payments map[int64]entity.Payment
	rates    []entity.Rate
	nextID   int64

	// UpdateErr forces UpdateBookingStatus to fail for the given booking ids.
	UpdateErr map[int64]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		beds:      map[int64]entity.Bed{},
		bookings:  map[int64]entity.Booking{},
		payments:  map[int64]entity.Payment{},
		UpdateErr: map[int64]error{},
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) SetRates(rates []entity.Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = append([]entity.Rate(nil), rates...)
}

// PutBooking stores b as-is, assigning an id when it has none.
func (s *MemoryStore) PutBooking(b entity.Booking) entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.id()
	}
	s.bookings[b.ID] = b
	return b
}

// Bookings returns every stored booking ordered by id.
func (s *MemoryStore) Bookings() []entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) InsertBed(ctx context.Context, bed *entity.Bed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.beds {
		if b.BedNumber == bed.BedNumber {
			return errors.Duplicate(fmt.Sprintf("bed number %d already exists", bed.BedNumber))
		}
	}
	bed.ID = s.id()
	bed.CreatedAt = time.Now()
	s.beds[bed.ID] = *bed
	return nil
}

func (s *MemoryStore) FindBedByID(ctx context.Context, id int64) (entity.Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bed, ok := s.beds[id]
	if !ok {
		return entity.Bed{}, errors.NotFound(fmt.Sprintf("bed %d not found", id))
	}
	return bed, nil
}

func (s *MemoryStore) ListBeds(ctx context.Context, roomType entity.RoomType) ([]entity.Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Bed{}
	for _, b := range s.beds {
		if roomType == "" || b.RoomType == roomType {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateBedStatus(ctx context.Context, id int64, status entity.BedStatus, notes string, at time.Time) (entity.Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bed, ok := s.beds[id]
	if !ok {
		return entity.Bed{}, errors.NotFound(fmt.Sprintf("bed %d not found", id))
	}
	if status == entity.BedStatusAvailable && bed.Status == entity.BedStatusCleaning {
		bed.LastCleanedAt.Time, bed.LastCleanedAt.Valid = at, true
	}
	bed.Status = status
	bed.MaintenanceNotes = notes
	bed.UpdatedAt.Time, bed.UpdatedAt.Valid = at, true
	s.beds[id] = bed
	return bed, nil
}

func (s *MemoryStore) ListActiveRates(ctx context.Context) ([]entity.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Rate{}
	for _, r := range s.rates {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindOccupiedIntervals(ctx context.Context, bedID int64) ([]entity.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervals(bedID), nil
}

func (s *MemoryStore) intervals(bedID int64) []entity.Interval {
	out := []entity.Interval{}
	for _, b := range s.bookings {
		if b.BedID.Valid && b.BedID.Int64 == bedID && b.Status.Active() {
			out = append(out, entity.Interval{BedID: bedID, BookingID: b.ID, CheckIn: b.CheckInDate, CheckOut: b.CheckOutDate})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out
}

func (s *MemoryStore) InsertBookingIfFree(ctx context.Context, booking *entity.Booking) error {
	if err := ctx.Err(); err != nil {
		return errors.DeadlineExceeded("allocation transaction timed out")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bedID := booking.BedID.Int64
	bed, ok := s.beds[bedID]
	if !ok {
		return errors.NotFound(fmt.Sprintf("bed %d not found", bedID))
	}
	if !bed.Status.Allocatable() {
		return errors.NoAvailability(fmt.Sprintf("bed %d is %s", bedID, bed.Status))
	}
	for _, iv := range s.intervals(bedID) {
		if iv.Range().Overlaps(booking.Range()) {
			return errors.NoAvailability(fmt.Sprintf("bed %d is taken for %s", bedID, booking.Range()))
		}
	}
	for _, b := range s.bookings {
		if b.IdempotencyKey == booking.IdempotencyKey || b.ReferenceNumber == booking.ReferenceNumber {
			return errors.Duplicate("duplicate booking key")
		}
	}

	booking.ID = s.id()
	booking.CreatedAt = time.Now()
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *MemoryStore) FindBookingByID(ctx context.Context, id int64) (entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return entity.Booking{}, errors.NotFound(fmt.Sprintf("booking %d not found", id))
	}
	return b, nil
}

func (s *MemoryStore) FindBookingByIdempotencyKey(ctx context.Context, key string) (entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.IdempotencyKey == key {
			return b, nil
		}
	}
	return entity.Booking{}, errors.NotFound("no booking for idempotency key")
}

func (s *MemoryStore) UpdateBookingStatus(ctx context.Context, booking entity.Booking, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.UpdateErr[booking.ID]; err != nil {
		return err
	}
	return s.update(booking, expectedVersion)
}

func (s *MemoryStore) update(booking entity.Booking, expectedVersion int64) error {
	current, ok := s.bookings[booking.ID]
	if !ok || current.Version != expectedVersion {
		return errors.VersionConflict(fmt.Sprintf("booking %d was modified concurrently", booking.ID))
	}
	current.Status = booking.Status
	current.Version = booking.Version
	current.AutoCleanupProcessed = booking.AutoCleanupProcessed
	current.CancellationReason = booking.CancellationReason
	current.CheckedInAt = booking.CheckedInAt
	current.CheckedOutAt = booking.CheckedOutAt
	current.UpdatedAt = booking.UpdatedAt
	s.bookings[booking.ID] = current
	return nil
}

func (s *MemoryStore) FindExpirableBookings(ctx context.Context, now time.Time, limit int) ([]entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Booking{}
	for _, b := range s.sorted() {
		if b.AutoCleanupProcessed {
			continue
		}
		if (b.Status == entity.StatusReserved && b.ReservationExpiresAt.Before(now)) ||
			(b.Status == entity.StatusAwaitingPayment && b.PaymentDeadline.Before(now)) {
			out = append(out, b)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) FindNoShowCandidates(ctx context.Context, checkInBefore time.Time, limit int) ([]entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Booking{}
	for _, b := range s.sorted() {
		if b.Status == entity.StatusConfirmed && b.CheckInDate.Before(checkInBefore) {
			out = append(out, b)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) sorted() []entity.Booking {
	out := make([]entity.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) InsertPayment(ctx context.Context, payment *entity.Payment, next *entity.Booking, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.TransactionID == payment.TransactionID {
			return errors.Duplicate(fmt.Sprintf("payment %s already recorded", payment.TransactionID))
		}
	}
	if next != nil {
		if err := s.update(*next, expectedVersion); err != nil {
			return err
		}
	}
	payment.ID = s.id()
	payment.CreatedAt = time.Now()
	s.payments[payment.ID] = *payment
	return nil
}

func (s *MemoryStore) FindPaymentByTransactionID(ctx context.Context, transactionID string) (entity.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	return entity.Payment{}, errors.NotFound(fmt.Sprintf("payment %s not found", transactionID))
}

func (s *MemoryStore) ListPaymentsByBookingID(ctx context.Context, bookingID int64) ([]entity.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Payment{}
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryCache is an availability cache kept in a map. A stale cache ignores
// invalidations, so it keeps answering with whatever it saw first.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[int64][]entity.Interval
	Stale   bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[int64][]entity.Interval{}}
}

func (c *MemoryCache) Get(ctx context.Context, bedID int64) ([]entity.Interval, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	iv, ok := c.entries[bedID]
	return iv, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, bedID int64, intervals []entity.Interval) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[bedID] = intervals
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, bedID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Stale {
		delete(c.entries, bedID)
	}
	return nil
}

// Cached reports whether bedID has an entry.
func (c *MemoryCache) Cached(bedID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[bedID]
	return ok
}
