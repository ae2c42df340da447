package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Showtime struct {
	bun.BaseModel `bun:"table:showtimes,alias:showtime"`

	ID        int64     `json:"id" bun:"id,pk,autoincrement"`
	MovieID   int64     `json:"movieId" bun:"movie_id,notnull"`
	TheaterID int64     `json:"theaterId" bun:"theater_id,notnull"`
	StartTime time.Time `json:"startTime" bun:"start_time,notnull"`
	EndTime   time.Time `json:"endTime" bun:"end_time,notnull"`
	Price     float64   `json:"price" bun:"price,notnull"`

	Movie    *Movie     `json:"movie,omitempty" bun:"rel:belongs-to,join:movie_id=id"`
	Theater  *Theater   `json:"theater,omitempty" bun:"rel:belongs-to,join:theater_id=id"`
	Bookings []*Booking `json:"bookings,omitempty" bun:"rel:has-many,join:id=showtime_id"`
}
