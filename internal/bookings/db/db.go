package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

// ErrIdempotencyKeyReused marks the race where two requests with the same
// idempotency key insert concurrently. The caller re-reads the winner's
// booking outside the failed transaction.
var ErrIdempotencyKeyReused = errors.New("idempotency key already used")

type DB struct {
	Bun *bun.DB
}

func (d *DB) lockingSupported() bool {
	return d.Bun.Dialect().Name() == dialect.PG
}

// AdmitBooking validates and inserts a booking in one transaction. The
// showtime row is locked for the duration, so concurrent bookings for
// the same showtime serialize and each one sees the seats taken by the
// bookings admitted before it.
func (d *DB) AdmitBooking(ctx context.Context, booking *models.Booking, now time.Time) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var showtime models.Showtime
		q := tx.NewSelect().
			Model(&showtime).
			Relation("Theater").
			Where("showtime.id = ?", booking.ShowtimeID)
		if d.lockingSupported() {
			// Lock only the showtime row: the relation join brings in
			// the nullable theater side, which FOR UPDATE cannot cover.
			q = q.For("UPDATE OF showtime")
		}
		err := q.Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Showtime with ID %d not found", booking.ShowtimeID)
		}
		if err != nil {
			return apperr.Internal(err)
		}

		// A showtime starting exactly now is still bookable.
		if showtime.StartTime.Before(now) {
			return apperr.InvalidRequest("Cannot book for a showtime that has already started")
		}

		capacity := 0
		if showtime.Theater != nil {
			capacity = showtime.Theater.Capacity
		}
		if booking.SeatNumber > capacity {
			return apperr.InvalidRequest("Seat number %d exceeds theater capacity of %d", booking.SeatNumber, capacity)
		}

		taken, err := tx.NewSelect().
			Model((*models.Booking)(nil)).
			Where("showtime_id = ?", booking.ShowtimeID).
			Where("seat_number = ?", booking.SeatNumber).
			Exists(ctx)
		if err != nil {
			return apperr.Internal(err)
		}
		if taken {
			return apperr.Conflict("This seat is already booked")
		}

		count, err := tx.NewSelect().
			Model((*models.Booking)(nil)).
			Where("showtime_id = ?", booking.ShowtimeID).
			Count(ctx)
		if err != nil {
			return apperr.Internal(err)
		}
		if count >= capacity {
			return apperr.InvalidRequest("Cannot book - theater capacity of %d has been reached", capacity)
		}

		_, err = tx.NewInsert().
			Model(booking).
			Exec(ctx)
		if database.UniqueConstraintContains(err, "idempotency_key") {
			return ErrIdempotencyKeyReused
		}
		if database.IsUniqueViolation(err) {
			// The seat check passed but another transaction inserted the
			// same seat first. The unique constraint is the backstop.
			return apperr.Conflict("This seat is already booked")
		}
		if err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// GetBookingByID fetches one booking with its showtime loaded.
func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Relation("Showtime").
		Where("booking.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Booking with ID %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &booking, nil
}

// GetBookingByKey fetches the booking created under an idempotency key.
// A nil booking with nil error means no booking carries the key.
func (d *DB) GetBookingByKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("idempotency_key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &booking, nil
}

// ListBookings returns bookings, optionally filtered by user and showtime.
func (d *DB) ListBookings(ctx context.Context, userID string, showtimeID int64) ([]models.Booking, error) {
	bookings := make([]models.Booking, 0)
	q := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Showtime")
	if userID != "" {
		q = q.Where("booking.user_id = ?", userID)
	}
	if showtimeID > 0 {
		q = q.Where("booking.showtime_id = ?", showtimeID)
	}
	if err := q.Order("booking.booking_time ASC").Scan(ctx); err != nil {
		return nil, apperr.Internal(err)
	}
	return bookings, nil
}

// ReassignBooking moves an existing booking to a new showtime or seat.
// The full admission checks run again against the target showtime, with
// the booking's own row excluded from the seat and capacity counts.
func (d *DB) ReassignBooking(ctx context.Context, booking *models.Booking, now time.Time) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var showtime models.Showtime
		q := tx.NewSelect().
			Model(&showtime).
			Relation("Theater").
			Where("showtime.id = ?", booking.ShowtimeID)
		if d.lockingSupported() {
			q = q.For("UPDATE OF showtime")
		}
		err := q.Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Showtime with ID %d not found", booking.ShowtimeID)
		}
		if err != nil {
			return apperr.Internal(err)
		}

		if showtime.StartTime.Before(now) {
			return apperr.InvalidRequest("Cannot book for a showtime that has already started")
		}

		capacity := 0
		if showtime.Theater != nil {
			capacity = showtime.Theater.Capacity
		}
		if booking.SeatNumber > capacity {
			return apperr.InvalidRequest("Seat number %d exceeds theater capacity of %d", booking.SeatNumber, capacity)
		}

		taken, err := tx.NewSelect().
			Model((*models.Booking)(nil)).
			Where("id != ?", booking.ID).
			Where("showtime_id = ?", booking.ShowtimeID).
			Where("seat_number = ?", booking.SeatNumber).
			Exists(ctx)
		if err != nil {
			return apperr.Internal(err)
		}
		if taken {
			return apperr.Conflict("This seat is already booked")
		}

		count, err := tx.NewSelect().
			Model((*models.Booking)(nil)).
			Where("id != ?", booking.ID).
			Where("showtime_id = ?", booking.ShowtimeID).
			Count(ctx)
		if err != nil {
			return apperr.Internal(err)
		}
		if count >= capacity {
			return apperr.InvalidRequest("Cannot book - theater capacity of %d has been reached", capacity)
		}

		res, err := tx.NewUpdate().
			Model(booking).
			Column("showtime_id", "seat_number").
			Where("id = ?", booking.ID).
			Exec(ctx)
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("This seat is already booked")
		}
		if err != nil {
			return apperr.Internal(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return apperr.Internal(err)
		}
		if affected == 0 {
			return apperr.NotFound("Booking with ID %s not found", booking.ID)
		}
		return nil
	})
}

// DeleteBooking removes a booking by ID.
func (d *DB) DeleteBooking(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Booking)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Booking with ID %s not found", id)
	}
	return nil
}
