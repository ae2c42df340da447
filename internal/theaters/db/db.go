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

// CreateTheater inserts a new theater. Theater names are unique.
func (d *DB) CreateTheater(ctx context.Context, theater *models.Theater) error {
	_, err := d.Bun.NewInsert().
		Model(theater).
		Returning("id").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("Theater with name %q already exists", theater.Name)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GetTheaterByID fetches one theater by its ID.
func (d *DB) GetTheaterByID(ctx context.Context, id int64) (*models.Theater, error) {
	var theater models.Theater
	err := d.Bun.NewSelect().
		Model(&theater).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Theater with ID %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &theater, nil
}

// ListTheaters returns all theaters, optionally filtered by name substring.
func (d *DB) ListTheaters(ctx context.Context, name string) ([]models.Theater, error) {
	theaters := make([]models.Theater, 0)
	q := d.Bun.NewSelect().Model(&theaters)
	if name != "" {
		q = q.Where("name LIKE ?", "%"+name+"%")
	}
	if err := q.Order("id ASC").Scan(ctx); err != nil {
		return nil, apperr.Internal(err)
	}
	return theaters, nil
}

// UpdateTheater overwrites name and capacity of an existing theater.
func (d *DB) UpdateTheater(ctx context.Context, theater *models.Theater) error {
	res, err := d.Bun.NewUpdate().
		Model(theater).
		Column("name", "capacity").
		Where("id = ?", theater.ID).
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("Theater with name %q already exists", theater.Name)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Theater with ID %d not found", theater.ID)
	}
	return nil
}

// DeleteTheater removes a theater unless showtimes still reference it.
func (d *DB) DeleteTheater(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Theater)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("Cannot delete theater that has associated showtimes")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Theater with ID %d not found", id)
	}
	return nil
}
