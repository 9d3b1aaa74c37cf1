package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment is the persisted record of a successful attach call
type Assignment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	VNID           string         `gorm:"column:vn_id;size:64;not null;index" json:"vn_id"`
	PNID           string         `gorm:"column:pn_id;size:64;not null;index" json:"pn_id"`
	PilotID        string         `gorm:"column:pilot;size:64;not null" json:"pilot"`
	TenantID       string         `gorm:"column:tenant_id;size:64;not null;index" json:"tenant_id"`
	AssignedAt     time.Time      `gorm:"column:assigned_at;not null" json:"assigned_at"`
	RunID          *string        `gorm:"column:run_id;size:36;index" json:"run_id,omitempty"`
	AttachResponse datatypes.JSON `gorm:"column:attach_response" json:"attach_response,omitempty"`
}

func (Assignment) TableName() string {
	return "assigned_pn_to_vn"
}
