package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Favorite struct {
	bun.BaseModel `bun:"table:favorites,alias:fav"`

	ID         int64     `bun:",pk,autoincrement" json:"id"`
	UserID     string    `bun:",notnull,unique:favorite_key" json:"user_id"`
	JobID      string    `bun:",notnull,unique:favorite_key" json:"job_id"`
	ImageIndex int       `bun:",notnull,unique:favorite_key" json:"image_index"`
	ImageURL   string    `bun:",notnull" json:"image_url"`
	Prompt     *string   `json:"prompt"`
	CreatedAt  time.Time `bun:",notnull" json:"created_at"`
}
