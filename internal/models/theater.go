package models

import "github.com/uptrace/bun"

type Theater struct {
	bun.BaseModel `bun:"table:theaters,alias:theater"`

	ID       int64  `json:"id" bun:"id,pk,autoincrement"`
	Name     string `json:"name" bun:"name,notnull,unique"`
	Capacity int    `json:"capacity" bun:"capacity,notnull"`
}
