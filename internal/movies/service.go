// Package movies manages the movie catalog.
package movies

import (
	"context"
	"fmt"

	"ms-moviebooking/internal/cache"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

type DBLayer interface {
	CreateMovie(ctx context.Context, movie *models.Movie) error
	GetMovieByID(ctx context.Context, id int64) (*models.Movie, error)
	ListMovies(ctx context.Context, title, genre string) ([]models.Movie, error)
	UpdateMovie(ctx context.Context, movie *models.Movie) error
	DeleteMovie(ctx context.Context, id int64) error
}

type MovieService struct {
	DB     DBLayer
	Cache  *cache.Cache
	Logger *logger.Logger
}

func NewMovieService(db DBLayer, c *cache.Cache, log *logger.Logger) *MovieService {
	return &MovieService{DB: db, Cache: c, Logger: log}
}

func (s *MovieService) CreateMovie(ctx context.Context, movie *models.Movie) error {
	if err := s.DB.CreateMovie(ctx, movie); err != nil {
		return err
	}
	s.Logger.LogDatabase("INSERT", "movies", fmt.Sprintf("created movie %d (%s)", movie.ID, movie.Title))
	return nil
}

// GetMovie reads through the cache when one is configured.
func (s *MovieService) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	key := cache.MovieKey(id)

	var cached models.Movie
	if hit, err := s.Cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	movie, err := s.DB.GetMovieByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Set(ctx, key, movie); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("failed to cache movie %d: %v", id, err))
	}
	return movie, nil
}

func (s *MovieService) ListMovies(ctx context.Context, title, genre string) ([]models.Movie, error) {
	return s.DB.ListMovies(ctx, title, genre)
}

func (s *MovieService) UpdateMovie(ctx context.Context, movie *models.Movie) error {
	if err := s.DB.UpdateMovie(ctx, movie); err != nil {
		return err
	}
	if err := s.Cache.Invalidate(ctx, cache.MovieKey(movie.ID)); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("failed to invalidate movie %d: %v", movie.ID, err))
	}
	return nil
}

func (s *MovieService) DeleteMovie(ctx context.Context, id int64) error {
	if err := s.DB.DeleteMovie(ctx, id); err != nil {
		return err
	}
	if err := s.Cache.Invalidate(ctx, cache.MovieKey(id)); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("failed to invalidate movie %d: %v", id, err))
	}
	return nil
}
