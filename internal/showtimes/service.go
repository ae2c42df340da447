// Package showtimes schedules screenings of movies in theaters. Admission
// of a new showtime happens inside a single database transaction so that
// no two showtimes can overlap in the same theater.
package showtimes

import (
	"context"
	"fmt"
	"time"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

type DBLayer interface {
	AdmitShowtime(ctx context.Context, showtime *models.Showtime) error
	GetShowtimeByID(ctx context.Context, id int64) (*models.Showtime, error)
	ListShowtimes(ctx context.Context, movieID, theaterID int64) ([]models.Showtime, error)
	UpdateShowtime(ctx context.Context, showtime *models.Showtime, revalidate bool) error
	DeleteShowtime(ctx context.Context, id int64) error
}

// MovieFinder resolves movies for duration-based end time derivation.
type MovieFinder interface {
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
}

// TheaterFinder resolves theaters before admission is attempted.
type TheaterFinder interface {
	GetTheater(ctx context.Context, id int64) (*models.Theater, error)
}

type KafkaPublisher interface {
	PublishShowtimeCreated(ctx context.Context, showtime *models.Showtime) error
}

type ShowtimeService struct {
	DB       DBLayer
	Movies   MovieFinder
	Theaters TheaterFinder
	Kafka    KafkaPublisher
	Clock    clock.Clock
	Logger   *logger.Logger
}

func NewShowtimeService(db DBLayer, movies MovieFinder, theaters TheaterFinder, kafka KafkaPublisher, clk clock.Clock, log *logger.Logger) *ShowtimeService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ShowtimeService{DB: db, Movies: movies, Theaters: theaters, Kafka: kafka, Clock: clk, Logger: log}
}

// CreateShowtime admits a new showtime. When endTime is nil it is derived
// from the movie's duration.
func (s *ShowtimeService) CreateShowtime(ctx context.Context, showtime *models.Showtime, endTime *time.Time) error {
	if showtime.StartTime.Before(s.Clock.Now()) {
		return apperr.InvalidRequest("Start time cannot be in the past")
	}

	movie, err := s.Movies.GetMovie(ctx, showtime.MovieID)
	if err != nil {
		return err
	}
	if _, err := s.Theaters.GetTheater(ctx, showtime.TheaterID); err != nil {
		return err
	}

	if endTime != nil {
		showtime.EndTime = *endTime
	} else {
		showtime.EndTime = showtime.StartTime.Add(time.Duration(movie.Duration) * time.Minute)
	}
	if !showtime.EndTime.After(showtime.StartTime) {
		return apperr.InvalidRequest("End time must be after start time")
	}

	if err := s.DB.AdmitShowtime(ctx, showtime); err != nil {
		return err
	}

	s.Logger.LogShowtime("CREATE", showtime.ID,
		fmt.Sprintf("movie %d in theater %d at %s", showtime.MovieID, showtime.TheaterID, showtime.StartTime.Format(time.RFC3339)))

	if s.Kafka != nil {
		if err := s.Kafka.PublishShowtimeCreated(ctx, showtime); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish showtime.created for %d: %v", showtime.ID, err))
		}
	}
	return nil
}

func (s *ShowtimeService) GetShowtime(ctx context.Context, id int64) (*models.Showtime, error) {
	return s.DB.GetShowtimeByID(ctx, id)
}

func (s *ShowtimeService) ListShowtimes(ctx context.Context, movieID, theaterID int64) ([]models.Showtime, error) {
	return s.DB.ListShowtimes(ctx, movieID, theaterID)
}

// UpdateShowtime applies changes to an existing showtime. The overlap
// check is rerun when the theater or the scheduled window changed.
func (s *ShowtimeService) UpdateShowtime(ctx context.Context, showtime *models.Showtime, endTime *time.Time) error {
	existing, err := s.DB.GetShowtimeByID(ctx, showtime.ID)
	if err != nil {
		return err
	}

	movie, err := s.Movies.GetMovie(ctx, showtime.MovieID)
	if err != nil {
		return err
	}

	if endTime != nil {
		showtime.EndTime = *endTime
	} else {
		showtime.EndTime = showtime.StartTime.Add(time.Duration(movie.Duration) * time.Minute)
	}
	if !showtime.EndTime.After(showtime.StartTime) {
		return apperr.InvalidRequest("End time must be after start time")
	}

	// Rescheduling into the past is rejected. An unchanged start time is
	// left alone so other fields of a past showtime stay editable.
	if !existing.StartTime.Equal(showtime.StartTime) && showtime.StartTime.Before(s.Clock.Now()) {
		return apperr.InvalidRequest("Start time cannot be in the past")
	}

	revalidate := existing.TheaterID != showtime.TheaterID ||
		!existing.StartTime.Equal(showtime.StartTime) ||
		!existing.EndTime.Equal(showtime.EndTime)

	if err := s.DB.UpdateShowtime(ctx, showtime, revalidate); err != nil {
		return err
	}

	s.Logger.LogShowtime("UPDATE", showtime.ID, "showtime updated")
	return nil
}

func (s *ShowtimeService) DeleteShowtime(ctx context.Context, id int64) error {
	if err := s.DB.DeleteShowtime(ctx, id); err != nil {
		return err
	}
	s.Logger.LogShowtime("DELETE", id, "showtime deleted")
	return nil
}
