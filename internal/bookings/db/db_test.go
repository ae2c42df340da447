package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/bookings/db"
	"ms-moviebooking/internal/models"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// One connection keeps the in-memory database alive for the test.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	_, err = bunDB.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	for _, model := range []interface{}{
		(*models.Movie)(nil),
		(*models.Theater)(nil),
		(*models.Showtime)(nil),
		(*models.Booking)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).WithForeignKeys().Exec(ctx)
		require.NoError(t, err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

// seedShowtime creates a movie, a theater with the given capacity and a
// showtime starting one hour after testNow.
func seedShowtime(t *testing.T, bunDB *bun.DB, capacity int) *models.Showtime {
	ctx := context.Background()

	movie := &models.Movie{Title: "The Matrix", Genre: "Sci-Fi", Duration: 120}
	_, err := bunDB.NewInsert().Model(movie).Exec(ctx)
	require.NoError(t, err)

	theater := &models.Theater{Name: "Hall " + uuid.NewString()[:8], Capacity: capacity}
	_, err = bunDB.NewInsert().Model(theater).Exec(ctx)
	require.NoError(t, err)

	showtime := &models.Showtime{
		MovieID:   movie.ID,
		TheaterID: theater.ID,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(3 * time.Hour),
		Price:     12.50,
	}
	_, err = bunDB.NewInsert().Model(showtime).Exec(ctx)
	require.NoError(t, err)

	return showtime
}

func newBooking(showtimeID int64, seat int) *models.Booking {
	return &models.Booking{
		ID:         uuid.NewString(),
		ShowtimeID: showtimeID,
		SeatNumber: seat,
		UserID:     uuid.NewString(),
	}
}

func TestAdmitBooking(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)

	booking := newBooking(showtime.ID, 5)
	booking.BookingTime = testNow
	err := bookingDB.AdmitBooking(ctx, booking, testNow)
	assert.NoError(t, err)

	got, err := bookingDB.GetBookingByID(ctx, booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, got.SeatNumber)
	require.NotNil(t, got.Showtime)
	assert.Equal(t, showtime.ID, got.Showtime.ID)
}

func TestAdmitBookingUnknownShowtime(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	err := bookingDB.AdmitBooking(context.Background(), newBooking(9999, 1), testNow)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, "Showtime with ID 9999 not found", apperr.Message(err))
}

func TestAdmitBookingShowtimeAlreadyStarted(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)

	// The exact start instant is still bookable.
	err := bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 1), showtime.StartTime)
	assert.NoError(t, err)

	err = bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 2), showtime.StartTime.Add(time.Minute))
	assert.True(t, apperr.IsInvalidRequest(err))
	assert.Equal(t, "Cannot book for a showtime that has already started", apperr.Message(err))
}

func TestAdmitBookingSeatExceedsCapacity(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	showtime := seedShowtime(t, bunDB, 50)

	err := bookingDB.AdmitBooking(context.Background(), newBooking(showtime.ID, 51), testNow)
	assert.True(t, apperr.IsInvalidRequest(err))
	assert.Equal(t, "Seat number 51 exceeds theater capacity of 50", apperr.Message(err))

	// Seat equal to capacity is the last valid seat.
	err = bookingDB.AdmitBooking(context.Background(), newBooking(showtime.ID, 50), testNow)
	assert.NoError(t, err)
}

func TestAdmitBookingSeatTaken(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)

	require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 7), testNow))

	err := bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 7), testNow)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, "This seat is already booked", apperr.Message(err))

	// The same seat for a different showtime is fine.
	other := seedShowtime(t, bunDB, 100)
	err = bookingDB.AdmitBooking(ctx, newBooking(other.ID, 7), testNow)
	assert.NoError(t, err)
}

func TestAdmitBookingCapacityReached(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 10)

	for seat := 6; seat <= 10; seat++ {
		require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, seat), testNow))
	}

	// Shrinking the theater below the existing booking count leaves free
	// in-range seats while the showtime is already oversold. Requests for
	// those seats are invalid, not conflicting.
	_, err := bunDB.NewUpdate().
		Model((*models.Theater)(nil)).
		Set("capacity = ?", 3).
		Where("id = ?", showtime.TheaterID).
		Exec(ctx)
	require.NoError(t, err)

	err = bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 1), testNow)
	assert.True(t, apperr.IsInvalidRequest(err))
	assert.Equal(t, "Cannot book - theater capacity of 3 has been reached", apperr.Message(err))
}

func TestAdmitBookingIdempotencyKeyRace(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)

	first := newBooking(showtime.ID, 10)
	first.IdempotencyKey = "retry-key"
	require.NoError(t, bookingDB.AdmitBooking(ctx, first, testNow))

	// A direct insert with the same key but a different seat simulates
	// the request that lost the race after its fast-path lookup missed.
	second := newBooking(showtime.ID, 11)
	second.IdempotencyKey = "retry-key"
	err := bookingDB.AdmitBooking(ctx, second, testNow)
	assert.ErrorIs(t, err, db.ErrIdempotencyKeyReused)

	winner, err := bookingDB.GetBookingByKey(ctx, "retry-key")
	assert.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, first.ID, winner.ID)
}

func TestBookingsWithoutKeyDoNotCollide(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)

	// Two bookings without idempotency keys must not trip the unique
	// index on the key column.
	require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 1), testNow))
	require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 2), testNow))

	missing, err := bookingDB.GetBookingByKey(ctx, "no-such-key")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListBookings(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)
	userID := uuid.NewString()

	mine := newBooking(showtime.ID, 1)
	mine.UserID = userID
	require.NoError(t, bookingDB.AdmitBooking(ctx, mine, testNow))
	require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 2), testNow))

	all, err := bookingDB.ListBookings(ctx, "", 0)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	byUser, err := bookingDB.ListBookings(ctx, userID, 0)
	assert.NoError(t, err)
	assert.Len(t, byUser, 1)
	assert.Equal(t, mine.ID, byUser[0].ID)

	byShowtime, err := bookingDB.ListBookings(ctx, "", showtime.ID)
	assert.NoError(t, err)
	assert.Len(t, byShowtime, 2)

	empty, err := bookingDB.ListBookings(ctx, uuid.NewString(), 0)
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReassignBooking(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)

	booking := newBooking(showtime.ID, 1)
	require.NoError(t, bookingDB.AdmitBooking(ctx, booking, testNow))
	taken := newBooking(showtime.ID, 2)
	require.NoError(t, bookingDB.AdmitBooking(ctx, taken, testNow))

	// Moving onto a taken seat conflicts.
	booking.SeatNumber = 2
	err := bookingDB.ReassignBooking(ctx, booking, testNow)
	assert.True(t, apperr.IsConflict(err))

	// Moving to a free seat succeeds and must not conflict with the
	// booking's own current seat.
	booking.SeatNumber = 3
	err = bookingDB.ReassignBooking(ctx, booking, testNow)
	assert.NoError(t, err)

	got, err := bookingDB.GetBookingByID(ctx, booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, got.SeatNumber)
}

func TestReassignBookingToFullShowtime(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	source := seedShowtime(t, bunDB, 100)
	target := seedShowtime(t, bunDB, 1)
	require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(target.ID, 1), testNow))

	booking := newBooking(source.ID, 1)
	require.NoError(t, bookingDB.AdmitBooking(ctx, booking, testNow))

	// The only seat of the target is taken.
	booking.ShowtimeID = target.ID
	err := bookingDB.ReassignBooking(ctx, booking, testNow)
	assert.True(t, apperr.IsConflict(err))
}

func TestReassignBookingCapacityReached(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	source := seedShowtime(t, bunDB, 100)
	target := seedShowtime(t, bunDB, 2)
	require.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(target.ID, 2), testNow))

	booking := newBooking(source.ID, 1)
	require.NoError(t, bookingDB.AdmitBooking(ctx, booking, testNow))

	// With the target shrunk to a single seat, seat 1 is free and in
	// range but the showtime is already at capacity.
	_, err := bunDB.NewUpdate().
		Model((*models.Theater)(nil)).
		Set("capacity = ?", 1).
		Where("id = ?", target.TheaterID).
		Exec(ctx)
	require.NoError(t, err)

	booking.ShowtimeID = target.ID
	err = bookingDB.ReassignBooking(ctx, booking, testNow)
	assert.True(t, apperr.IsInvalidRequest(err))
	assert.Equal(t, "Cannot book - theater capacity of 1 has been reached", apperr.Message(err))
}

func TestDeleteBooking(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	showtime := seedShowtime(t, bunDB, 100)
	booking := newBooking(showtime.ID, 1)
	require.NoError(t, bookingDB.AdmitBooking(ctx, booking, testNow))

	assert.NoError(t, bookingDB.DeleteBooking(ctx, booking.ID))

	err := bookingDB.DeleteBooking(ctx, booking.ID)
	assert.True(t, apperr.IsNotFound(err))

	// The freed seat can be booked again.
	assert.NoError(t, bookingDB.AdmitBooking(ctx, newBooking(showtime.ID, 1), testNow))
}
