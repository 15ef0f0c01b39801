package domain

import (
	"time"

	"gorm.io/datatypes"
)

const EntityPriceChange = "price_change"

// Audit is an append-only record of a lifecycle transition.
type Audit struct {
	ID            string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID     string            `gorm:"type:varchar(64);not null;index" json:"project_id"`
	Entity        string            `gorm:"type:varchar(64);not null;index:idx_audits_entity" json:"entity"`
	EntityID      string            `gorm:"type:varchar(64);not null;index:idx_audits_entity" json:"entity_id"`
	Action        string            `gorm:"type:varchar(64);not null" json:"action"`
	Actor         string            `gorm:"type:varchar(128)" json:"actor"`
	Explain       datatypes.JSONMap `json:"explain,omitempty"`
	CorrelationID string            `gorm:"type:varchar(64);index" json:"correlation_id"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
}

func (Audit) TableName() string { return "audits" }

type ListFilter struct {
	ProjectID string
	Entity    string
	EntityID  string
	Action    string
	Cursor    *Cursor
	Limit     int
}

type Cursor struct {
	ID        string
	CreatedAt time.Time
}
