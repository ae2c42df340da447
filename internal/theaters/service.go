// Package theaters manages theater records and their seating capacity.
package theaters

import (
	"context"
	"fmt"

	"ms-moviebooking/internal/cache"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

type DBLayer interface {
	CreateTheater(ctx context.Context, theater *models.Theater) error
	GetTheaterByID(ctx context.Context, id int64) (*models.Theater, error)
	ListTheaters(ctx context.Context, name string) ([]models.Theater, error)
	UpdateTheater(ctx context.Context, theater *models.Theater) error
	DeleteTheater(ctx context.Context, id int64) error
}

type TheaterService struct {
	DB     DBLayer
	Cache  *cache.Cache
	Logger *logger.Logger
}

func NewTheaterService(db DBLayer, c *cache.Cache, log *logger.Logger) *TheaterService {
	return &TheaterService{DB: db, Cache: c, Logger: log}
}

func (s *TheaterService) CreateTheater(ctx context.Context, theater *models.Theater) error {
	if err := s.DB.CreateTheater(ctx, theater); err != nil {
		return err
	}
	s.Logger.LogDatabase("INSERT", "theaters", fmt.Sprintf("created theater %d (%s)", theater.ID, theater.Name))
	return nil
}

// GetTheater reads through the cache when one is configured.
func (s *TheaterService) GetTheater(ctx context.Context, id int64) (*models.Theater, error) {
	key := cache.TheaterKey(id)

	var cached models.Theater
	if hit, err := s.Cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	theater, err := s.DB.GetTheaterByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Set(ctx, key, theater); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("failed to cache theater %d: %v", id, err))
	}
	return theater, nil
}

func (s *TheaterService) ListTheaters(ctx context.Context, name string) ([]models.Theater, error) {
	return s.DB.ListTheaters(ctx, name)
}

func (s *TheaterService) UpdateTheater(ctx context.Context, theater *models.Theater) error {
	if err := s.DB.UpdateTheater(ctx, theater); err != nil {
		return err
	}
	if err := s.Cache.Invalidate(ctx, cache.TheaterKey(theater.ID)); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("failed to invalidate theater %d: %v", theater.ID, err))
	}
	return nil
}

func (s *TheaterService) DeleteTheater(ctx context.Context, id int64) error {
	if err := s.DB.DeleteTheater(ctx, id); err != nil {
		return err
	}
	if err := s.Cache.Invalidate(ctx, cache.TheaterKey(id)); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("failed to invalidate theater %d: %v", id, err))
	}
	return nil
}
