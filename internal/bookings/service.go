// Package bookings reserves seats for showtimes. Seat admission runs as
// one database transaction per booking: the showtime row is locked, the
// seat and capacity checks run against committed state, and the unique
// constraint on (showtime_id, seat_number) backs the check up.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-moviebooking/internal/bookings/db"
	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

type DBLayer interface {
	AdmitBooking(ctx context.Context, booking *models.Booking, now time.Time) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByKey(ctx context.Context, key string) (*models.Booking, error)
	ListBookings(ctx context.Context, userID string, showtimeID int64) ([]models.Booking, error)
	ReassignBooking(ctx context.Context, booking *models.Booking, now time.Time) error
	DeleteBooking(ctx context.Context, id string) error
}

type KafkaPublisher interface {
	PublishBookingCreated(ctx context.Context, booking *models.Booking) error
	PublishBookingCancelled(ctx context.Context, booking *models.Booking) error
}

type BookingService struct {
	DB     DBLayer
	Kafka  KafkaPublisher
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewBookingService(database DBLayer, kafka KafkaPublisher, clk clock.Clock, log *logger.Logger) *BookingService {
	if clk == nil {
		clk = clock.System{}
	}
	return &BookingService{DB: database, Kafka: kafka, Clock: clk, Logger: log}
}

// CreateBooking reserves a seat. When the request carries an idempotency
// key and a booking already exists under it, that booking is returned
// instead of admitting a new one.
func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.IdempotencyKey != "" {
		existing, err := s.DB.GetBookingByKey(ctx, booking.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.Logger.LogBooking("REPLAY", existing.ID, "returned existing booking for idempotency key")
			return existing, nil
		}
	}

	// One clock read per request keeps the recorded booking time and the
	// admission check consistent.
	now := s.Clock.Now()
	booking.ID = uuid.NewString()
	booking.BookingTime = now

	err := s.DB.AdmitBooking(ctx, booking, now)
	if errors.Is(err, db.ErrIdempotencyKeyReused) {
		// Lost the insert race to a request with the same key. The
		// winner's row is committed, so read it back.
		existing, getErr := s.DB.GetBookingByKey(ctx, booking.IdempotencyKey)
		if getErr != nil {
			return nil, getErr
		}
		if existing != nil {
			s.Logger.LogBooking("REPLAY", existing.ID, "returned existing booking after insert race")
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("CREATE", booking.ID,
		fmt.Sprintf("seat %d for showtime %d by user %s", booking.SeatNumber, booking.ShowtimeID, booking.UserID))

	if s.Kafka != nil {
		if err := s.Kafka.PublishBookingCreated(ctx, booking); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish booking.created for %s: %v", booking.ID, err))
		}
	}
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.DB.GetBookingByID(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, userID string, showtimeID int64) ([]models.Booking, error) {
	return s.DB.ListBookings(ctx, userID, showtimeID)
}

// UpdateBooking moves an existing booking to a different seat or
// showtime. The move only runs the admission checks again when the
// target actually changed.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, showtimeID int64, seatNumber int) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.ShowtimeID == showtimeID && booking.SeatNumber == seatNumber {
		return booking, nil
	}

	booking.ShowtimeID = showtimeID
	booking.SeatNumber = seatNumber
	if err := s.DB.ReassignBooking(ctx, booking, s.Clock.Now()); err != nil {
		return nil, err
	}

	s.Logger.LogBooking("UPDATE", booking.ID,
		fmt.Sprintf("moved to seat %d for showtime %d", seatNumber, showtimeID))

	// The preloaded showtime relation may belong to the old showtime.
	return s.DB.GetBookingByID(ctx, booking.ID)
}

// CancelBooking deletes a booking and streams a cancellation event.
func (s *BookingService) CancelBooking(ctx context.Context, id string) error {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.DB.DeleteBooking(ctx, id); err != nil {
		return err
	}

	s.Logger.LogBooking("CANCEL", id, "booking cancelled")

	if s.Kafka != nil {
		if err := s.Kafka.PublishBookingCancelled(ctx, booking); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish booking.cancelled for %s: %v", id, err))
		}
	}
	return nil
}
