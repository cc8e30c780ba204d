package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GenerationRecord archives a completed generation job for its owner.
type GenerationRecord struct {
	bun.BaseModel `bun:"table:generation_history,alias:gh"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	JobID     string    `bun:",notnull,unique" json:"job_id"`
	UserID    string    `bun:",notnull" json:"user_id"`
	Prompt    string    `bun:",notnull" json:"prompt"`
	AssetType string    `bun:",notnull" json:"asset_type"`
	Quality   *string   `json:"quality"`
	Model     *string   `json:"model"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `bun:",notnull" json:"created_at"`
}
