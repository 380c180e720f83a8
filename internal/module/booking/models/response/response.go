package response

import (
	"time"

	"bed-booking-service/internal/module/booking/models/entity"

	"github.com/shopspring/decimal"
)

type UserServiceValidate struct {
	IsValid bool   `json:"is_valid"`
	UserID  int64  `json:"user_id"`
	Role    string `json:"role"`
}

type Booking struct {
	ID                   int64           `json:"id"`
	ReferenceNumber      string          `json:"reference_number"`
	PilgrimID            int64           `json:"pilgrim_id"`
	Status               string          `json:"status"`
	Version              int64           `json:"version"`
	RoomType             string          `json:"room_type"`
	BedID                int64           `json:"bed_id,omitempty"`
	CheckInDate          string          `json:"check_in_date"`
	CheckOutDate         string          `json:"check_out_date"`
	NumberOfNights       int             `json:"number_of_nights"`
	NumberOfPersons      int             `json:"number_of_persons"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Currency             string          `json:"currency"`
	ReservationExpiresAt time.Time       `json:"reservation_expires_at"`
	PaymentDeadline      time.Time       `json:"payment_deadline"`
	CancellationReason   string          `json:"cancellation_reason,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	EstimatedArrivalTime string          `json:"estimated_arrival_time,omitempty"`
}

func NewBooking(b entity.Booking) Booking {
	return Booking{
		ID:                   b.ID,
		ReferenceNumber:      b.ReferenceNumber,
		PilgrimID:            b.PilgrimID,
		Status:               string(b.Status),
		Version:              b.Version,
		RoomType:             string(b.RoomType),
		BedID:                b.BedID.Int64,
		CheckInDate:          b.CheckInDate.Format("2006-01-02"),
		CheckOutDate:         b.CheckOutDate.Format("2006-01-02"),
		NumberOfNights:       b.NumberOfNights,
		NumberOfPersons:      b.NumberOfPersons,
		TotalAmount:          b.TotalAmount,
		Currency:             b.Currency,
		ReservationExpiresAt: b.ReservationExpiresAt,
		PaymentDeadline:      b.PaymentDeadline,
		CancellationReason:   b.CancellationReason,
		Notes:                b.Notes,
		EstimatedArrivalTime: b.EstimatedArrivalTime,
	}
}

type Bed struct {
	ID               int64           `json:"id"`
	Label            string          `json:"label"`
	BedNumber        int             `json:"bed_number"`
	RoomNumber       int             `json:"room_number"`
	RoomName         string          `json:"room_name"`
	RoomType         string          `json:"room_type"`
	BedType          string          `json:"bed_type"`
	Capacity         int             `json:"capacity"`
	PricePerNight    decimal.Decimal `json:"price_per_night"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	MaintenanceNotes string          `json:"maintenance_notes,omitempty"`
}

func NewBed(b entity.Bed) Bed {
	return Bed{
		ID:               b.ID,
		Label:            b.Label(),
		BedNumber:        b.BedNumber,
		RoomNumber:       b.RoomNumber,
		RoomName:         b.RoomName,
		RoomType:         string(b.RoomType),
		BedType:          b.BedType,
		Capacity:         b.Capacity,
		PricePerNight:    b.PricePerNight,
		Currency:         b.Currency,
		Status:           string(b.Status),
		MaintenanceNotes: b.MaintenanceNotes,
	}
}

func NewBeds(beds []entity.Bed) []Bed {
	out := make([]Bed, 0, len(beds))
	for _, b := range beds {
		out = append(out, NewBed(b))
	}
	return out
}

// Availability lists free beds for a stay with the quote each would cost.
type Availability struct {
	RoomType     string          `json:"room_type"`
	CheckInDate  string          `json:"check_in_date"`
	CheckOutDate string          `json:"check_out_date"`
	PartySize    int             `json:"party_size"`
	Beds         []AvailableBed  `json:"beds"`
	LowestPrice  decimal.Decimal `json:"lowest_price"`
}

type AvailableBed struct {
	Bed
	Quote decimal.Decimal `json:"quote"`
}
