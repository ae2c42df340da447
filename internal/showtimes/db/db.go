package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// lockingSupported reports whether the dialect understands SELECT FOR
// UPDATE. SQLite does not, but its single-writer model serializes
// concurrent transactions anyway.
func (d *DB) lockingSupported() bool {
	return d.Bun.Dialect().Name() == dialect.PG
}

// AdmitShowtime validates and inserts a showtime in one transaction.
// The theater row is locked for the duration so two overlapping
// showtimes for the same theater cannot both pass the overlap check.
func (d *DB) AdmitShowtime(ctx context.Context, showtime *models.Showtime) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var theater models.Theater
		q := tx.NewSelect().
			Model(&theater).
			Where("id = ?", showtime.TheaterID)
		if d.lockingSupported() {
			q = q.For("UPDATE")
		}
		err := q.Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Theater with ID %d not found", showtime.TheaterID)
		}
		if err != nil {
			return apperr.Internal(err)
		}

		overlapping, err := tx.NewSelect().
			Model((*models.Showtime)(nil)).
			Where("theater_id = ?", showtime.TheaterID).
			Where("start_time <= ?", showtime.EndTime).
			Where("end_time >= ?", showtime.StartTime).
			Count(ctx)
		if err != nil {
			return apperr.Internal(err)
		}
		if overlapping > 0 {
			return apperr.Conflict("There is already a showtime scheduled in theater %s at this time", theater.Name)
		}

		_, err = tx.NewInsert().
			Model(showtime).
			Returning("id").
			Exec(ctx)
		if database.IsForeignKeyViolation(err) {
			return apperr.NotFound("Movie with ID %d not found", showtime.MovieID)
		}
		if err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// GetShowtimeByID fetches a showtime with its movie and theater loaded.
func (d *DB) GetShowtimeByID(ctx context.Context, id int64) (*models.Showtime, error) {
	var showtime models.Showtime
	err := d.Bun.NewSelect().
		Model(&showtime).
		Relation("Movie").
		Relation("Theater").
		Where("showtime.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Showtime with ID %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &showtime, nil
}

// ListShowtimes returns showtimes, optionally filtered by movie or theater.
func (d *DB) ListShowtimes(ctx context.Context, movieID, theaterID int64) ([]models.Showtime, error) {
	showtimes := make([]models.Showtime, 0)
	q := d.Bun.NewSelect().
		Model(&showtimes).
		Relation("Movie").
		Relation("Theater")
	if movieID > 0 {
		q = q.Where("showtime.movie_id = ?", movieID)
	}
	if theaterID > 0 {
		q = q.Where("showtime.theater_id = ?", theaterID)
	}
	if err := q.Order("showtime.start_time ASC").Scan(ctx); err != nil {
		return nil, apperr.Internal(err)
	}
	return showtimes, nil
}

// UpdateShowtime overwrites an existing showtime. When revalidate is set
// the overlap check runs again under the theater lock, excluding the
// showtime's own row.
func (d *DB) UpdateShowtime(ctx context.Context, showtime *models.Showtime, revalidate bool) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if revalidate {
			var theater models.Theater
			q := tx.NewSelect().
				Model(&theater).
				Where("id = ?", showtime.TheaterID)
			if d.lockingSupported() {
				q = q.For("UPDATE")
			}
			err := q.Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("Theater with ID %d not found", showtime.TheaterID)
			}
			if err != nil {
				return apperr.Internal(err)
			}

			overlapping, err := tx.NewSelect().
				Model((*models.Showtime)(nil)).
				Where("id != ?", showtime.ID).
				Where("theater_id = ?", showtime.TheaterID).
				Where("start_time <= ?", showtime.EndTime).
				Where("end_time >= ?", showtime.StartTime).
				Count(ctx)
			if err != nil {
				return apperr.Internal(err)
			}
			if overlapping > 0 {
				return apperr.Conflict("There is already a showtime scheduled in theater %s at this time", theater.Name)
			}
		}

		res, err := tx.NewUpdate().
			Model(showtime).
			Column("movie_id", "theater_id", "start_time", "end_time", "price").
			Where("id = ?", showtime.ID).
			Exec(ctx)
		if database.IsForeignKeyViolation(err) {
			return apperr.NotFound("Movie with ID %d not found", showtime.MovieID)
		}
		if err != nil {
			return apperr.Internal(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return apperr.Internal(err)
		}
		if affected == 0 {
			return apperr.NotFound("Showtime with ID %d not found", showtime.ID)
		}
		return nil
	})
}

// DeleteShowtime removes a showtime unless bookings still reference it.
func (d *DB) DeleteShowtime(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Showtime)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("Cannot delete showtime that has associated bookings")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Showtime with ID %d not found", id)
	}
	return nil
}
