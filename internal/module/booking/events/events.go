// Package events publishes domain events after commit. Publishing is fire-and-forget:
// failures are logged and never undo the committed change.
package events

import (
	"context"
	"time"

	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/pkg/log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const (
	Source      = "bed-booking-service"
	SpecVersion = "1.0"

	TopicPaymentRecorded  = "albergue.v1.payment.recorded"
	TopicRefundRequired   = "albergue.v1.payment.refund_required"
	TopicBedStatusChanged = "albergue.v1.bed.status_changed"
	TopicPaymentCallback  = "albergue.v1.payment.callback"
	TopicPoisoned         = "albergue.v1.poisoned"
)

// BookingTopic is the topic a booking lands on when it enters status.
func BookingTopic(status entity.BookingStatus) string {
	return "albergue.v1.booking." + string(status)
}

type PaymentEvent struct {
	PaymentID      int64                `json:"payment_id"`
	BookingID      int64                `json:"booking_id"`
	TransactionID  string               `json:"transaction_id"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       string               `json:"currency"`
	Status         entity.PaymentStatus `json:"status"`
	RefundRequired bool                 `json:"refund_required"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

type BedStatusEvent struct {
	BedID      int64            `json:"bed_id"`
	Label      string           `json:"label"`
	FromStatus entity.BedStatus `json:"from_status"`
	ToStatus   entity.BedStatus `json:"to_status"`
	Notes      string           `json:"notes,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type Emitter interface {
	BookingTransitioned(ctx context.Context, event entity.Event)
	PaymentRecorded(ctx context.Context, payment entity.Payment, at time.Time)
	BedStatusChanged(ctx context.Context, event BedStatusEvent)
}

type emitter struct {
	publisher message.Publisher
	log       log.Logger
}

func New(publisher message.Publisher, log log.Logger) Emitter {
	return &emitter{
		publisher: publisher,
		log:       log,
	}
}

// BookingTransitioned implements Emitter.
func (e *emitter) BookingTransitioned(ctx context.Context, event entity.Event) {
	e.publish(ctx, BookingTopic(event.ToStatus), "booking."+string(event.ToStatus), event)
}

// PaymentRecorded implements Emitter. Payments that need a refund go to their own topic.
func (e *emitter) PaymentRecorded(ctx context.Context, payment entity.Payment, at time.Time) {
	event := PaymentEvent{
		PaymentID:      payment.ID,
		BookingID:      payment.BookingID,
		TransactionID:  payment.TransactionID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Status:         payment.Status,
		RefundRequired: payment.RefundRequired,
		OccurredAt:     at,
	}

	if payment.RefundRequired {
		e.publish(ctx, TopicRefundRequired, "payment.refund_required", event)
		return
	}
	e.publish(ctx, TopicPaymentRecorded, "payment.recorded", event)
}

// BedStatusChanged implements Emitter.
func (e *emitter) BedStatusChanged(ctx context.Context, event BedStatusEvent) {
	e.publish(ctx, TopicBedStatusChanged, "bed.status_changed", event)
}

func (e *emitter) publish(ctx context.Context, topic, eventType string, payload interface{}) {
	if e.publisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.log.Error(ctx, "error marshal event", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("ce_specversion", SpecVersion)
	msg.Metadata.Set("ce_type", "albergue.v1."+eventType)
	msg.Metadata.Set("ce_source", Source)
	msg.Metadata.Set("ce_id", msg.UUID)
	msg.SetContext(ctx)

	if err := e.publisher.Publish(topic, msg); err != nil {
		e.log.Error(ctx, "error publish event to "+topic, err)
	}
}
