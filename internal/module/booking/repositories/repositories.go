package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"
	"bed-booking-service/internal/pkg/log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	bedColumns = `id, bed_number, room_number, room_name, room_type, bed_type, capacity, price_per_night,
		currency, status, last_cleaned_at, maintenance_notes, created_at, updated_at`

	bookingColumns = `id, pilgrim_id, reference_number, idempotency_key, room_type, check_in_date, check_out_date,
		number_of_nights, number_of_persons, number_of_rooms, bed_id, total_amount, currency, status, version,
		reservation_expires_at, payment_deadline, auto_cleanup_processed, notes, estimated_arrival_time,
		cancellation_reason, checked_in_at, checked_out_at, created_at, updated_at`

	paymentColumns = `id, booking_id, amount, currency, payment_type, payment_status, payment_deadline,
		transaction_id, receipt_number, refund_required, gateway_response, payment_date, created_at, updated_at`

	rateColumns = `id, room_type, bed_type, price_per_night, currency, per_person, included_persons,
		extra_person_rate, is_active, created_at`
)

// activeStatusList mirrors the predicate of the bookings_no_overlap exclusion constraint.
var activeStatusList = func() string {
	quoted := make([]string, 0, len(entity.ActiveStatuses))
	for _, s := range entity.ActiveStatuses {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return strings.Join(quoted, ", ")
}()

type repositories struct {
	db  *sqlx.DB
	log log.Logger
}

type Repositories interface {
	// beds
	InsertBed(ctx context.Context, bed *entity.Bed) error
	FindBedByID(ctx context.Context, id int64) (entity.Bed, error)
	ListBeds(ctx context.Context, roomType entity.RoomType) ([]entity.Bed, error)
	UpdateBedStatus(ctx context.Context, id int64, status entity.BedStatus, notes string, at time.Time) (entity.Bed, error)
	// pricing
	ListActiveRates(ctx context.Context) ([]entity.Rate, error)
	// availability projection
	FindOccupiedIntervals(ctx context.Context, bedID int64) ([]entity.Interval, error)
	// bookings
	InsertBookingIfFree(ctx context.Context, booking *entity.Booking) error
	FindBookingByID(ctx context.Context, id int64) (entity.Booking, error)
	FindBookingByIdempotencyKey(ctx context.Context, key string) (entity.Booking, error)
	UpdateBookingStatus(ctx context.Context, booking entity.Booking, expectedVersion int64) error
	FindExpirableBookings(ctx context.Context, now time.Time, limit int) ([]entity.Booking, error)
	FindNoShowCandidates(ctx context.Context, checkInBefore time.Time, limit int) ([]entity.Booking, error)
	// payments
	InsertPayment(ctx context.Context, payment *entity.Payment, next *entity.Booking, expectedVersion int64) error
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (entity.Payment, error)
	ListPaymentsByBookingID(ctx context.Context, bookingID int64) ([]entity.Payment, error)
}

func New(db *sqlx.DB, log log.Logger) Repositories {
	return &repositories{
		db:  db,
		log: log,
	}
}

// InsertBed implements Repositories.
func (r *repositories) InsertBed(ctx context.Context, bed *entity.Bed) error {
	query := `INSERT INTO beds (bed_number, room_number, room_name, room_type, bed_type, capacity, price_per_night, currency, status, maintenance_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		bed.BedNumber, bed.RoomNumber, bed.RoomName, bed.RoomType, bed.BedType, bed.Capacity,
		bed.PricePerNight, bed.Currency, bed.Status, bed.MaintenanceNotes,
	).Scan(&bed.ID, &bed.CreatedAt)
	if err != nil {
		return r.translate(ctx, err, "error insert bed")
	}
	return nil
}

// FindBedByID implements Repositories.
func (r *repositories) FindBedByID(ctx context.Context, id int64) (entity.Bed, error) {
	query := `SELECT ` + bedColumns + ` FROM beds WHERE id = $1`
	var bed entity.Bed
	err := r.db.GetContext(ctx, &bed, query, id)
	if err == sql.ErrNoRows {
		return entity.Bed{}, errors.NotFound(fmt.Sprintf("bed %d not found", id))
	}
	if err != nil {
		return entity.Bed{}, r.translate(ctx, err, "error find bed by id")
	}
	return bed, nil
}

// ListBeds implements Repositories. An empty room type lists every bed.
func (r *repositories) ListBeds(ctx context.Context, roomType entity.RoomType) ([]entity.Bed, error) {
	query := `SELECT ` + bedColumns + ` FROM beds WHERE ($1 = '' OR room_type = $1) ORDER BY room_number, bed_number, id`
	beds := []entity.Bed{}
	if err := r.db.SelectContext(ctx, &beds, query, string(roomType)); err != nil {
		return nil, r.translate(ctx, err, "error list beds")
	}
	return beds, nil
}

// UpdateBedStatus implements Repositories. Moving to available stamps last_cleaned_at.
func (r *repositories) UpdateBedStatus(ctx context.Context, id int64, status entity.BedStatus, notes string, at time.Time) (entity.Bed, error) {
	query := `UPDATE beds SET status = $1, maintenance_notes = $2, updated_at = $3,
			last_cleaned_at = CASE WHEN $1 = 'available' AND status = 'cleaning' THEN $3 ELSE last_cleaned_at END
		WHERE id = $4
		RETURNING ` + bedColumns
	var bed entity.Bed
	err := r.db.GetContext(ctx, &bed, query, string(status), notes, at, id)
	if err == sql.ErrNoRows {
		return entity.Bed{}, errors.NotFound(fmt.Sprintf("bed %d not found", id))
	}
	if err != nil {
		return entity.Bed{}, r.translate(ctx, err, "error update bed status")
	}
	return bed, nil
}

// ListActiveRates implements Repositories.
func (r *repositories) ListActiveRates(ctx context.Context) ([]entity.Rate, error) {
	query := `SELECT ` + rateColumns + ` FROM pricing WHERE is_active = true ORDER BY id`
	rates := []entity.Rate{}
	if err := r.db.SelectContext(ctx, &rates, query); err != nil {
		return nil, r.translate(ctx, err, "error list active rates")
	}
	return rates, nil
}

// FindOccupiedIntervals implements Repositories.
func (r *repositories) FindOccupiedIntervals(ctx context.Context, bedID int64) ([]entity.Interval, error) {
	query := `SELECT id, bed_id, check_in_date, check_out_date FROM bookings
		WHERE bed_id = $1 AND status IN (` + activeStatusList + `)
		ORDER BY check_in_date`
	intervals := []entity.Interval{}
	if err := r.db.SelectContext(ctx, &intervals, query, bedID); err != nil {
		return nil, r.translate(ctx, err, "error find occupied intervals")
	}
	return intervals, nil
}

// InsertBookingIfFree implements Repositories. The bed row is locked, the range is
// re-checked against committed bookings and only then the booking is inserted, all in
// one serializable transaction. A taken bed returns NoAvailability.
func (r *repositories) InsertBookingIfFree(ctx context.Context, booking *entity.Booking) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return r.translate(ctx, err, "error starting transaction")
	}

	bedID := booking.BedID.Int64
	var status entity.BedStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM beds WHERE id = $1 FOR UPDATE`, bedID)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return errors.NotFound(fmt.Sprintf("bed %d not found", bedID))
	}
	if err != nil {
		tx.Rollback()
		return r.translate(ctx, err, "error locking bed")
	}
	if !status.Allocatable() {
		tx.Rollback()
		return errors.NoAvailability(fmt.Sprintf("bed %d is %s", bedID, status))
	}

	checkIn := booking.CheckInDate.Format(helpers.DateLayout)
	checkOut := booking.CheckOutDate.Format(helpers.DateLayout)

	var taken bool
	err = tx.GetContext(ctx, &taken, `SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE bed_id = $1 AND status IN (`+activeStatusList+`)
				AND check_in_date < $3 AND check_out_date > $2
		)`, bedID, checkIn, checkOut)
	if err != nil {
		tx.Rollback()
		return r.translate(ctx, err, "error checking overlap")
	}
	if taken {
		tx.Rollback()
		return errors.NoAvailability(fmt.Sprintf("bed %d is taken for %s", bedID, booking.Range()))
	}

	query := `INSERT INTO bookings (pilgrim_id, reference_number, idempotency_key, room_type, check_in_date, check_out_date,
			number_of_nights, number_of_persons, number_of_rooms, bed_id, total_amount, currency, status, version,
			reservation_expires_at, payment_deadline, notes, estimated_arrival_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`
	err = tx.QueryRowxContext(ctx, query,
		booking.PilgrimID, booking.ReferenceNumber, booking.IdempotencyKey, booking.RoomType, checkIn, checkOut,
		booking.NumberOfNights, booking.NumberOfPersons, booking.NumberOfRooms, bedID, booking.TotalAmount,
		booking.Currency, booking.Status, booking.Version, booking.ReservationExpiresAt, booking.PaymentDeadline,
		booking.Notes, booking.EstimatedArrivalTime,
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		tx.Rollback()
		return r.translate(ctx, err, "error insert booking")
	}

	if err := tx.Commit(); err != nil {
		return r.translate(ctx, err, "error committing transaction")
	}
	return nil
}

// FindBookingByID implements Repositories.
func (r *repositories) FindBookingByID(ctx context.Context, id int64) (entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if err == sql.ErrNoRows {
		return entity.Booking{}, errors.NotFound(fmt.Sprintf("booking %d not found", id))
	}
	if err != nil {
		return entity.Booking{}, r.translate(ctx, err, "error find booking by id")
	}
	return booking, nil
}

// FindBookingByIdempotencyKey implements Repositories.
func (r *repositories) FindBookingByIdempotencyKey(ctx context.Context, key string) (entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = $1`
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking, query, key)
	if err == sql.ErrNoRows {
		return entity.Booking{}, errors.NotFound("no booking for idempotency key")
	}
	if err != nil {
		return entity.Booking{}, r.translate(ctx, err, "error find booking by idempotency key")
	}
	return booking, nil
}

// UpdateBookingStatus implements Repositories. The write only lands when the stored
// version still equals expectedVersion.
func (r *repositories) UpdateBookingStatus(ctx context.Context, booking entity.Booking, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, updateBookingQuery, updateBookingArgs(booking, expectedVersion)...)
	if err != nil {
		return r.translate(ctx, err, "error update booking status")
	}
	return versionChecked(res, booking.ID)
}

const updateBookingQuery = `UPDATE bookings SET status = $1, version = $2, auto_cleanup_processed = $3,
		cancellation_reason = $4, checked_in_at = $5, checked_out_at = $6, updated_at = $7
	WHERE id = $8 AND version = $9`

func updateBookingArgs(b entity.Booking, expectedVersion int64) []interface{} {
	return []interface{}{
		b.Status, b.Version, b.AutoCleanupProcessed, b.CancellationReason,
		b.CheckedInAt, b.CheckedOutAt, b.UpdatedAt, b.ID, expectedVersion,
	}
}

func versionChecked(res sql.Result, bookingID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.InternalServerError("error reading affected rows")
	}
	if affected == 0 {
		return errors.VersionConflict(fmt.Sprintf("booking %d was modified concurrently", bookingID))
	}
	return nil
}

// FindExpirableBookings implements Repositories.
func (r *repositories) FindExpirableBookings(ctx context.Context, now time.Time, limit int) ([]entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE auto_cleanup_processed = false
			AND ((status = 'reserved' AND reservation_expires_at < $1)
				OR (status = 'awaiting_payment' AND payment_deadline < $1))
		ORDER BY id
		LIMIT $2`
	bookings := []entity.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, now, limit); err != nil {
		return nil, r.translate(ctx, err, "error find expirable bookings")
	}
	return bookings, nil
}

// FindNoShowCandidates implements Repositories.
func (r *repositories) FindNoShowCandidates(ctx context.Context, checkInBefore time.Time, limit int) ([]entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'confirmed' AND check_in_date < $1
		ORDER BY id
		LIMIT $2`
	bookings := []entity.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, checkInBefore.Format(helpers.DateLayout), limit); err != nil {
		return nil, r.translate(ctx, err, "error find no-show candidates")
	}
	return bookings, nil
}

// InsertPayment implements Repositories. When next is set the booking transition is
// written in the same transaction, guarded by expectedVersion.
func (r *repositories) InsertPayment(ctx context.Context, payment *entity.Payment, next *entity.Booking, expectedVersion int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return r.translate(ctx, err, "error starting transaction")
	}

	query := `INSERT INTO payments (booking_id, amount, currency, payment_type, payment_status, payment_deadline,
			transaction_id, receipt_number, refund_required, gateway_response, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	err = tx.QueryRowxContext(ctx, query,
		payment.BookingID, payment.Amount, payment.Currency, payment.PaymentType, payment.Status,
		payment.PaymentDeadline, payment.TransactionID, payment.ReceiptNumber, payment.RefundRequired,
		payment.GatewayResponse, payment.PaymentDate,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		tx.Rollback()
		return r.translate(ctx, err, "error insert payment")
	}

	if next != nil {
		res, err := tx.ExecContext(ctx, updateBookingQuery, updateBookingArgs(*next, expectedVersion)...)
		if err != nil {
			tx.Rollback()
			return r.translate(ctx, err, "error update booking status")
		}
		if err := versionChecked(res, next.ID); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return r.translate(ctx, err, "error committing transaction")
	}
	return nil
}

// FindPaymentByTransactionID implements Repositories.
func (r *repositories) FindPaymentByTransactionID(ctx context.Context, transactionID string) (entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	var payment entity.Payment
	err := r.db.GetContext(ctx, &payment, query, transactionID)
	if err == sql.ErrNoRows {
		return entity.Payment{}, errors.NotFound(fmt.Sprintf("payment %s not found", transactionID))
	}
	if err != nil {
		return entity.Payment{}, r.translate(ctx, err, "error find payment by transaction id")
	}
	return payment, nil
}

// ListPaymentsByBookingID implements Repositories.
func (r *repositories) ListPaymentsByBookingID(ctx context.Context, bookingID int64) ([]entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY id`
	payments := []entity.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, bookingID); err != nil {
		return nil, r.translate(ctx, err, "error list payments by booking id")
	}
	return payments, nil
}

// translate maps driver errors onto the service error codes. Anything unknown is logged
// and surfaces as an internal error carrying msg.
func (r *repositories) translate(ctx context.Context, err error, msg string) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.DeadlineExceeded(msg)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return errors.Duplicate(fmt.Sprintf("%s: duplicate %s", msg, pqErr.Constraint))
		case "23P01": // exclusion_violation
			return errors.NoAvailability(msg + ": range already taken")
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return errors.VersionConflict(msg + ": concurrent update")
		case "57014": // query_canceled
			return errors.DeadlineExceeded(msg)
		}
	}

	r.log.Error(ctx, msg, err)
	return errors.InternalServerError(msg)
}
