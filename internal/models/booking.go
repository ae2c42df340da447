package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:booking"`

	ID             string    `json:"id" bun:"id,pk"`
	ShowtimeID     int64     `json:"showtimeId" bun:"showtime_id,notnull,unique:showtime_seat"`
	SeatNumber     int       `json:"seatNumber" bun:"seat_number,notnull,unique:showtime_seat"`
	UserID         string    `json:"userId" bun:"user_id,notnull"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty" bun:"idempotency_key,nullzero,unique"`
	BookingTime    time.Time `json:"bookingTime" bun:"booking_time,notnull"`

	Showtime *Showtime `json:"showtime,omitempty" bun:"rel:belongs-to,join:showtime_id=id"`
}
