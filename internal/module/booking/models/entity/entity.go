package entity

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type RoomType string

const (
	RoomTypeDormitory RoomType = "dormitory"
	RoomTypePrivate   RoomType = "private"
)

func (r RoomType) Valid() bool {
	return r == RoomTypeDormitory || r == RoomTypePrivate
}

// BedStatus is housekeeping state. It never encodes reservation state.
type BedStatus string

const (
	BedStatusAvailable   BedStatus = "available"
	BedStatusMaintenance BedStatus = "maintenance"
	BedStatusCleaning    BedStatus = "cleaning"
)

func (s BedStatus) Valid() bool {
	return s == BedStatusAvailable || s == BedStatusMaintenance || s == BedStatusCleaning
}

// Allocatable reports whether a bed in this state may be offered for future nights.
func (s BedStatus) Allocatable() bool {
	return s != BedStatusMaintenance
}

type Bed struct {
	ID               int64           `db:"id"`
	BedNumber        int             `db:"bed_number"`
	RoomNumber       int             `db:"room_number"`
	RoomName         string          `db:"room_name"`
	RoomType         RoomType        `db:"room_type"`
	BedType          string          `db:"bed_type"`
	Capacity         int             `db:"capacity"`
	PricePerNight    decimal.Decimal `db:"price_per_night"`
	Currency         string          `db:"currency"`
	Status           BedStatus       `db:"status"`
	LastCleanedAt    sql.NullTime    `db:"last_cleaned_at"`
	MaintenanceNotes string          `db:"maintenance_notes"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        sql.NullTime    `db:"updated_at"`
}

// Label is the human facing bed code, e.g. D1-01 for room 1 bed 1 of a dormitory.
func (b Bed) Label() string {
	prefix := "P"
	if b.RoomType == RoomTypeDormitory {
		prefix = "D"
	}
	return fmt.Sprintf("%s%d-%02d", prefix, b.RoomNumber, b.BedNumber)
}

type Booking struct {
	ID                   int64           `db:"id"`
	PilgrimID            int64           `db:"pilgrim_id"`
	ReferenceNumber      string          `db:"reference_number"`
	IdempotencyKey       string          `db:"idempotency_key"`
	RoomType             RoomType        `db:"room_type"`
	CheckInDate          time.Time       `db:"check_in_date"`
	CheckOutDate         time.Time       `db:"check_out_date"`
	NumberOfNights       int             `db:"number_of_nights"`
	NumberOfPersons      int             `db:"number_of_persons"`
	NumberOfRooms        int             `db:"number_of_rooms"`
	BedID                sql.NullInt64   `db:"bed_id"`
	TotalAmount          decimal.Decimal `db:"total_amount"`
	Currency             string          `db:"currency"`
	Status               BookingStatus   `db:"status"`
	Version              int64           `db:"version"`
	ReservationExpiresAt time.Time       `db:"reservation_expires_at"`
	PaymentDeadline      time.Time       `db:"payment_deadline"`
	AutoCleanupProcessed bool            `db:"auto_cleanup_processed"`
	Notes                string          `db:"notes"`
	EstimatedArrivalTime string          `db:"estimated_arrival_time"`
	CancellationReason   string          `db:"cancellation_reason"`
	CheckedInAt          sql.NullTime    `db:"checked_in_at"`
	CheckedOutAt         sql.NullTime    `db:"checked_out_at"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            sql.NullTime    `db:"updated_at"`
}

func (b Booking) Range() DateRange {
	return DateRange{CheckIn: b.CheckInDate, CheckOut: b.CheckOutDate}
}

type PaymentStatus string

const (
	PaymentStatusAwaiting PaymentStatus = "awaiting_payment"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentType string

const (
	PaymentTypeFull    PaymentType = "full"
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeBalance PaymentType = "balance"
)

type Payment struct {
	ID              int64            `db:"id"`
	BookingID       int64            `db:"booking_id"`
	Amount          decimal.Decimal  `db:"amount"`
	Currency        string           `db:"currency"`
	PaymentType     PaymentType      `db:"payment_type"`
	Status          PaymentStatus    `db:"payment_status"`
	PaymentDeadline time.Time        `db:"payment_deadline"`
	TransactionID   string           `db:"transaction_id"`
	ReceiptNumber   string           `db:"receipt_number"`
	RefundRequired  bool             `db:"refund_required"`
	GatewayResponse *json.RawMessage `db:"gateway_response"`
	PaymentDate     sql.NullTime     `db:"payment_date"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       sql.NullTime     `db:"updated_at"`
}

// Rate is one row of the pricing table. Inactive rows are kept for history.
type Rate struct {
	ID              int64           `db:"id"`
	RoomType        RoomType        `db:"room_type"`
	BedType         string          `db:"bed_type"`
	PricePerNight   decimal.Decimal `db:"price_per_night"`
	Currency        string          `db:"currency"`
	PerPerson       bool            `db:"per_person"`
	IncludedPersons int             `db:"included_persons"`
	ExtraPersonRate decimal.Decimal `db:"extra_person_rate"`
	IsActive        bool            `db:"is_active"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Event is emitted after every committed booking transition.
// Consumers deduplicate on (BookingID, Version).
type Event struct {
	BookingID       int64         `json:"booking_id"`
	ReferenceNumber string        `json:"reference_number"`
	BedID           int64         `json:"bed_id,omitempty"`
	FromStatus      BookingStatus `json:"from_status,omitempty"`
	ToStatus        BookingStatus `json:"to_status"`
	Version         int64         `json:"version"`
	OccurredAt      time.Time     `json:"occurred_at"`
}
