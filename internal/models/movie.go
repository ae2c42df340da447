package models

import "github.com/uptrace/bun"

type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:movie"`

	ID          int64   `json:"id" bun:"id,pk,autoincrement"`
	Title       string  `json:"title" bun:"title,notnull"`
	Genre       string  `json:"genre" bun:"genre,notnull"`
	Duration    int     `json:"duration" bun:"duration,notnull"` // minutes
	Rating      float64 `json:"rating" bun:"rating"`
	ReleaseYear int     `json:"releaseYear" bun:"release_year"`
}
