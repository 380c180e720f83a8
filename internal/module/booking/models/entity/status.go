package entity

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	StatusReserved        BookingStatus = "reserved"
	StatusAwaitingPayment BookingStatus = "awaiting_payment"
	StatusConfirmed       BookingStatus = "confirmed"
	StatusCheckedIn       BookingStatus = "checked_in"
	StatusCheckedOut      BookingStatus = "checked_out"
	StatusCancelled       BookingStatus = "cancelled"
	StatusExpired         BookingStatus = "expired"
	StatusNoShow          BookingStatus = "no_show"
)

var AllStatuses = []BookingStatus{
	StatusReserved,
	StatusAwaitingPayment,
	StatusConfirmed,
	StatusCheckedIn,
	StatusCheckedOut,
	StatusCancelled,
	StatusExpired,
	StatusNoShow,
}

// ActiveStatuses hold a bed and count against availability.
var ActiveStatuses = []BookingStatus{
	StatusReserved,
	StatusAwaitingPayment,
	StatusConfirmed,
	StatusCheckedIn,
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown booking status: %s", s)
}

func (s BookingStatus) Active() bool {
	for _, st := range ActiveStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusCheckedOut, StatusCancelled, StatusExpired, StatusNoShow:
		return true
	}
	return false
}

// DateRange is a half-open night range [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

func (r DateRange) Valid() bool {
	return r.CheckOut.After(r.CheckIn)
}

// Overlaps is the half-open test a1 < b2 && a2 < b1.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s,%s)", r.CheckIn.Format("2006-01-02"), r.CheckOut.Format("2006-01-02"))
}

// Interval is one occupied range of a bed, as projected from an active booking.
type Interval struct {
	BedID     int64     `db:"bed_id" json:"bed_id"`
	BookingID int64     `db:"id" json:"booking_id"`
	CheckIn   time.Time `db:"check_in_date" json:"check_in"`
	CheckOut  time.Time `db:"check_out_date" json:"check_out"`
}

func (i Interval) Range() DateRange {
	return DateRange{CheckIn: i.CheckIn, CheckOut: i.CheckOut}
}
