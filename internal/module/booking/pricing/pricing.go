// Package pricing computes stay prices. Price is pure: identical inputs always give an
// identical Quote, which lets historical invoices be recomputed for audit.
//
// Rounding: the total is rounded once, at the end, to the currency minor unit using
// round-half-up (0.005 EUR becomes 0.01 EUR). Amounts are never negative, so half-up and
// half-away-from-zero coincide.
package pricing

import (
	"fmt"
	"strings"

	"bed-booking-service/internal/module/booking/models/entity"

	"github.com/shopspring/decimal"
)

const (
	SourceRateTable = "rate_table"
	SourceBed       = "bed"
)

var minorUnits = map[string]int32{
	"EUR": 2,
	"USD": 2,
	"GBP": 2,
	"CHF": 2,
	"JPY": 0,
	"KRW": 0,
}

type Quote struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Nightly    decimal.Decimal `json:"nightly"`
	Nights     int             `json:"nights"`
	PartySize  int             `json:"party_size"`
	RateSource string          `json:"rate_source"`
}

// MinorUnit returns the number of decimals of currency, 2 when unknown.
func MinorUnit(currency string) int32 {
	if u, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return u
	}
	return 2
}

// Round applies round-half-up to the minor unit of currency.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnit(currency))
}

// Price quotes nights for partySize persons on bed. The active rate for the bed's
// (room type, bed type) wins over the bed's own nightly price.
func Price(bed entity.Bed, nights, partySize int, rates []entity.Rate) (Quote, error) {
	if nights <= 0 {
		return Quote{}, fmt.Errorf("nights must be positive, got %d", nights)
	}
	if partySize <= 0 {
		return Quote{}, fmt.Errorf("party size must be positive, got %d", partySize)
	}

	rate, source := resolveRate(bed, rates)
	if rate.PricePerNight.IsNegative() {
		return Quote{}, fmt.Errorf("negative nightly price for bed %d", bed.ID)
	}

	nightly := rate.PricePerNight
	if rate.PerPerson {
		nightly = nightly.Mul(decimal.NewFromInt(int64(partySize)))
	} else if extra := partySize - rate.IncludedPersons; extra > 0 {
		nightly = nightly.Add(rate.ExtraPersonRate.Mul(decimal.NewFromInt(int64(extra))))
	}

	currency := strings.ToUpper(rate.Currency)
	amount := Round(nightly.Mul(decimal.NewFromInt(int64(nights))), currency)

	return Quote{
		Amount:     amount,
		Currency:   currency,
		Nightly:    nightly,
		Nights:     nights,
		PartySize:  partySize,
		RateSource: source,
	}, nil
}

func resolveRate(bed entity.Bed, rates []entity.Rate) (entity.Rate, string) {
	for _, r := range rates {
		if r.IsActive && r.RoomType == bed.RoomType && r.BedType == bed.BedType {
			if r.Currency == "" {
				r.Currency = bed.Currency
			}
			return r, SourceRateTable
		}
	}

	// dormitory beds are sold per person, private beds per room with one person included
	fallback := entity.Rate{
		RoomType:        bed.RoomType,
		BedType:         bed.BedType,
		PricePerNight:   bed.PricePerNight,
		Currency:        bed.Currency,
		PerPerson:       bed.RoomType == entity.RoomTypeDormitory,
		IncludedPersons: bed.Capacity,
	}
	if fallback.Currency == "" {
		fallback.Currency = "EUR"
	}
	return fallback, SourceBed
}

// RequiredAmount is what must be paid before a booking is confirmed under policy.
// percent is only read for the deposit policy.
func RequiredAmount(total decimal.Decimal, currency string, policy string, percent int) decimal.Decimal {
	if policy != "deposit" || percent <= 0 || percent >= 100 {
		return total
	}
	return Round(total.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)), currency)
}
