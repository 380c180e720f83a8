package request

type Allocate struct {
	PilgrimID            int64  `json:"pilgrim_id" validate:"required,gt=0"`
	RoomType             string `json:"room_type" validate:"required,oneof=dormitory private"`
	CheckInDate          string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate         string `json:"check_out_date" validate:"required,datetime=2006-01-02"`
	PartySize            int    `json:"party_size" validate:"required,gt=0"`
	IdempotencyKey       string `json:"idempotency_key" validate:"required,max=128"`
	Notes                string `json:"notes" validate:"max=1000"`
	EstimatedArrivalTime string `json:"estimated_arrival_time" validate:"omitempty,max=32"`
}

type Cancel struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Payment is a gateway outcome, received over HTTP or the payment callback topic.
type Payment struct {
	BookingID       int64                  `json:"booking_id" validate:"required,gt=0"`
	Amount          string                 `json:"amount" validate:"required,numeric"`
	Currency        string                 `json:"currency" validate:"required,len=3"`
	TransactionID   string                 `json:"transaction_id" validate:"required"`
	Succeeded       bool                   `json:"succeeded"`
	ReceiptNumber   string                 `json:"receipt_number"`
	GatewayResponse map[string]interface{} `json:"gateway_response"`
}

type Availability struct {
	RoomType     string `query:"room_type" validate:"required,oneof=dormitory private"`
	CheckInDate  string `query:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOutDate string `query:"check_out" validate:"required,datetime=2006-01-02"`
	PartySize    int    `query:"party_size" validate:"required,gt=0"`
}

type RegisterBed struct {
	BedNumber     int    `json:"bed_number" validate:"required,gt=0"`
	RoomNumber    int    `json:"room_number" validate:"required,gt=0"`
	RoomName      string `json:"room_name" validate:"required"`
	RoomType      string `json:"room_type" validate:"required,oneof=dormitory private"`
	BedType       string `json:"bed_type" validate:"required,oneof=single bunk double"`
	Capacity      int    `json:"capacity" validate:"required,gt=0"`
	PricePerNight string `json:"price_per_night" validate:"required,numeric"`
	Currency      string `json:"currency" validate:"required,len=3"`
}

type SetBedStatus struct {
	Status string `json:"status" validate:"required,oneof=available maintenance cleaning"`
	Notes  string `json:"notes" validate:"max=1000"`
}
