// Package models contains domain entities for the backup number assignment job
package models

import "time"

// VirtualNumber is a number purchased by a tenant.
// Column names follow the default store shape; other shapes are aliased onto them at query time.
type VirtualNumber struct {
	ID          string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	TenantID    string    `gorm:"column:tenant_id;size:64;not null;index:idx_vn_tenant_created" json:"tenant_id"`
	TenantName  *string   `gorm:"column:tenant_name;size:255" json:"tenant_name,omitempty"`
	Number      string    `gorm:"column:vn_number;size:32;not null" json:"vn_number"`
	Region      string    `gorm:"column:region;size:64" json:"region"`
	DateCreated time.Time `gorm:"column:date_created;not null;index:idx_vn_tenant_created" json:"date_created"`
}

func (VirtualNumber) TableName() string {
	return "IncomingPhoneNumber"
}
