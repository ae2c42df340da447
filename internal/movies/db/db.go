package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateMovie inserts a new movie and fills in its generated ID.
func (d *DB) CreateMovie(ctx context.Context, movie *models.Movie) error {
	_, err := d.Bun.NewInsert().
		Model(movie).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GetMovieByID fetches one movie by its ID.
func (d *DB) GetMovieByID(ctx context.Context, id int64) (*models.Movie, error) {
	var movie models.Movie
	err := d.Bun.NewSelect().
		Model(&movie).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Movie with ID %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &movie, nil
}

// ListMovies returns movies, optionally filtered by title substring and genre.
func (d *DB) ListMovies(ctx context.Context, title, genre string) ([]models.Movie, error) {
	movies := make([]models.Movie, 0)
	q := d.Bun.NewSelect().Model(&movies)
	if title != "" {
		q = q.Where("title LIKE ?", "%"+title+"%")
	}
	if genre != "" {
		q = q.Where("genre = ?", genre)
	}
	if err := q.Order("id ASC").Scan(ctx); err != nil {
		return nil, apperr.Internal(err)
	}
	return movies, nil
}

// UpdateMovie overwrites all mutable columns of an existing movie.
func (d *DB) UpdateMovie(ctx context.Context, movie *models.Movie) error {
	res, err := d.Bun.NewUpdate().
		Model(movie).
		Column("title", "genre", "duration", "rating", "release_year").
		Where("id = ?", movie.ID).
		Exec(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Movie with ID %d not found", movie.ID)
	}
	return nil
}

// DeleteMovie removes a movie. Deleting a movie that still has showtimes
// fails with a conflict.
func (d *DB) DeleteMovie(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Movie)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("Cannot delete movie that has associated showtimes")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Movie with ID %d not found", id)
	}
	return nil
}
