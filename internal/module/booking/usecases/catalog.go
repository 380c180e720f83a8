package usecases

import (
	"context"
	"fmt"
	"strings"

	"bed-booking-service/internal/module/booking/events"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/models/request"
	"bed-booking-service/internal/module/booking/models/response"
	"bed-booking-service/internal/module/booking/pricing"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"

	"github.com/shopspring/decimal"
)

func (u *usecase) RegisterBed(ctx context.Context, payload *request.RegisterBed) (entity.Bed, error) {
	price, err := decimal.NewFromString(payload.PricePerNight)
	if err != nil || price.IsNegative() {
		return entity.Bed{}, errors.ValidationError("price per night must be a non-negative decimal")
	}

	roomType := entity.RoomType(payload.RoomType)
	if !roomType.Valid() {
		return entity.Bed{}, errors.ValidationError(fmt.Sprintf("unknown room type %q", payload.RoomType))
	}
	if roomType == entity.RoomTypeDormitory && payload.Capacity != 1 {
		return entity.Bed{}, errors.ValidationError("dormitory beds hold exactly one person")
	}

	bed := entity.Bed{
		BedNumber:     payload.BedNumber,
		RoomNumber:    payload.RoomNumber,
		RoomName:      payload.RoomName,
		RoomType:      roomType,
		BedType:       payload.BedType,
		Capacity:      payload.Capacity,
		PricePerNight: price,
		Currency:      strings.ToUpper(payload.Currency),
		Status:        entity.BedStatusAvailable,
	}

	if err := u.repo.InsertBed(ctx, &bed); err != nil {
		if errors.Is(err, errors.CodeDuplicate) {
			return entity.Bed{}, errors.ValidationError(fmt.Sprintf("bed number %d already registered", bed.BedNumber))
		}
		return entity.Bed{}, err
	}
	return bed, nil
}

func (u *usecase) ListBeds(ctx context.Context, roomType string) ([]entity.Bed, error) {
	if roomType != "" && !entity.RoomType(roomType).Valid() {
		return nil, errors.ValidationError(fmt.Sprintf("unknown room type %q", roomType))
	}
	return u.repo.ListBeds(ctx, entity.RoomType(roomType))
}

// SetBedStatus changes housekeeping state only. Reservations on the bed are untouched,
// a bed in maintenance is simply no longer offered.
func (u *usecase) SetBedStatus(ctx context.Context, id int64, payload *request.SetBedStatus) (entity.Bed, error) {
	status := entity.BedStatus(payload.Status)
	if !status.Valid() {
		return entity.Bed{}, errors.ValidationError(fmt.Sprintf("unknown bed status %q", payload.Status))
	}

	current, err := u.repo.FindBedByID(ctx, id)
	if err != nil {
		return entity.Bed{}, err
	}

	now := u.now()
	bed, err := u.repo.UpdateBedStatus(ctx, id, status, payload.Notes, now)
	if err != nil {
		return entity.Bed{}, err
	}

	u.index.Invalidate(ctx, id)
	if current.Status != bed.Status {
		u.emitter.BedStatusChanged(ctx, events.BedStatusEvent{
			BedID:      bed.ID,
			Label:      bed.Label(),
			FromStatus: current.Status,
			ToStatus:   bed.Status,
			Notes:      bed.MaintenanceNotes,
			OccurredAt: now,
		})
	}
	return bed, nil
}

// Availability lists free beds with the price each would cost for the stay.
func (u *usecase) Availability(ctx context.Context, payload *request.Availability) (response.Availability, error) {
	checkIn, err := helpers.ParseDate(payload.CheckInDate)
	if err != nil {
		return response.Availability{}, errors.ValidationError("check-in date must be YYYY-MM-DD")
	}
	checkOut, err := helpers.ParseDate(payload.CheckOutDate)
	if err != nil {
		return response.Availability{}, errors.ValidationError("check-out date must be YYYY-MM-DD")
	}
	stay := entity.DateRange{CheckIn: checkIn, CheckOut: checkOut}
	if !stay.Valid() {
		return response.Availability{}, errors.ValidationError("check-out must be after check-in")
	}
	if payload.PartySize <= 0 {
		return response.Availability{}, errors.ValidationError("party size must be positive")
	}
	roomType := entity.RoomType(payload.RoomType)
	if !roomType.Valid() {
		return response.Availability{}, errors.ValidationError(fmt.Sprintf("unknown room type %q", payload.RoomType))
	}

	beds, err := u.index.FreeBeds(ctx, roomType, stay, payload.PartySize, 0)
	if err != nil {
		return response.Availability{}, err
	}
	rates, err := u.repo.ListActiveRates(ctx)
	if err != nil {
		return response.Availability{}, err
	}

	resp := response.Availability{
		RoomType:     string(roomType),
		CheckInDate:  payload.CheckInDate,
		CheckOutDate: payload.CheckOutDate,
		PartySize:    payload.PartySize,
		Beds:         []response.AvailableBed{},
	}
	for i, bed := range beds {
		quote, err := pricing.Price(bed, stay.Nights(), payload.PartySize, rates)
		if err != nil {
			return response.Availability{}, errors.InternalServerError("error pricing stay")
		}
		if i == 0 || quote.Amount.LessThan(resp.LowestPrice) {
			resp.LowestPrice = quote.Amount
		}
		resp.Beds = append(resp.Beds, response.AvailableBed{Bed: response.NewBed(bed), Quote: quote.Amount})
	}
	return resp, nil
}
