package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusApplied    Status = "APPLIED"
	StatusRejected   Status = "REJECTED"
	StatusFailed     Status = "FAILED"
	StatusRolledBack Status = "ROLLED_BACK"
)

type SyncState string

const (
	SyncQueued  SyncState = "QUEUED"
	SyncSyncing SyncState = "SYNCING"
	SyncSynced  SyncState = "SYNCED"
	SyncError   SyncState = "ERROR"
)

// PriceChange is a proposed or executed mutation of a SKU price.
// FromAmount and ToAmount are fixed at creation; only Status, ApprovedBy,
// AppliedAt and ConnectorStatus move afterwards.
type PriceChange struct {
	ID                string `gorm:"primaryKey;type:varchar(64)"`
	TenantID          string `gorm:"type:varchar(64);not null;index"`
	ProjectID         string `gorm:"type:varchar(64);not null;index"`
	SkuID             string `gorm:"column:sku_id;type:varchar(64);not null;index"`
	FromAmount        int64  `gorm:"not null"`
	ToAmount          int64  `gorm:"not null"`
	Currency          string `gorm:"type:varchar(3);not null"`
	Source            string `gorm:"type:varchar(32)"`
	Context           datatypes.JSONMap
	PolicyResult      NullPolicyResult
	Status            Status  `gorm:"type:varchar(16);not null;index"`
	ExternalVariantID *string `gorm:"type:varchar(128)"`
	ApprovedBy        *string `gorm:"type:varchar(64)"`
	AppliedAt         *time.Time
	ConnectorStatus   NullConnectorStatus
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (PriceChange) TableName() string { return "price_changes" }

// PolicyResult is the verdict of the upstream rule evaluation.
type PolicyResult struct {
	OK     bool          `json:"ok"`
	Checks []PolicyCheck `json:"checks"`
}

type PolicyCheck struct {
	Name    string         `json:"name"`
	OK      bool           `json:"ok"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ConnectorStatus is the last known outcome of syncing with the platform.
type ConnectorStatus struct {
	Target       connectordomain.Target `json:"target"`
	State        SyncState              `json:"state"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	VariantID    string                 `json:"variantId,omitempty"`
	ExternalID   string                 `json:"externalId,omitempty"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
	UpdatedAt    *time.Time             `json:"updatedAt,omitempty"`
}

// MetadataString reads a string entry of Metadata.
func (c ConnectorStatus) MetadataString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	if v, ok := c.Metadata[key].(string); ok {
		return v
	}
	return ""
}

type NullPolicyResult struct {
	Result PolicyResult
	Valid  bool
}

func (n *NullPolicyResult) Scan(value any) error {
	n.Result, n.Valid = PolicyResult{}, false
	raw, err := jsonBytes(value)
	if err != nil || raw == nil {
		return err
	}
	if err := json.Unmarshal(raw, &n.Result); err != nil {
		return fmt.Errorf("scan policy_result: %w", err)
	}
	n.Valid = true
	return nil
}

func (n NullPolicyResult) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	b, err := json.Marshal(n.Result)
	return string(b), err
}

type NullConnectorStatus struct {
	Status ConnectorStatus
	Valid  bool
}

func (n *NullConnectorStatus) Scan(value any) error {
	n.Status, n.Valid = ConnectorStatus{}, false
	raw, err := jsonBytes(value)
	if err != nil || raw == nil {
		return err
	}
	if err := json.Unmarshal(raw, &n.Status); err != nil {
		return fmt.Errorf("scan connector_status: %w", err)
	}
	n.Valid = true
	return nil
}

func (n NullConnectorStatus) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	b, err := json.Marshal(n.Status)
	return string(b), err
}

func (NullPolicyResult) GormDataType() string { return "json" }

func (NullPolicyResult) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func (NullConnectorStatus) GormDataType() string { return "json" }

func (NullConnectorStatus) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func jsonColumnType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

func jsonBytes(value any) ([]byte, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil, fmt.Errorf("unsupported json column type %T", value)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}
