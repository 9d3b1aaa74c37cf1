package models

import "time"

// Default pool state values
const (
	PhysicalNumberStateAvailable = "Available"
	PhysicalNumberStateReserved  = "Reserved"
)

// PhysicalNumber is a pool number reachable through exactly one pilot.
// State moves Available -> Reserved only through the conditional update in the repository.
type PhysicalNumber struct {
	ID         string     `gorm:"column:id;primaryKey;size:64" json:"id"`
	Number     string     `gorm:"column:pn;size:32;not null" json:"pn"`
	PilotID    string     `gorm:"column:pilot;size:64;not null;index:idx_pn_pool_lookup" json:"pilot"`
	Region     string     `gorm:"column:region;size:64;index:idx_pn_pool_lookup" json:"region"`
	State      string     `gorm:"column:status;size:32;not null;default:Available;index:idx_pn_pool_lookup" json:"status"`
	ReservedBy *string    `gorm:"column:reserved_by;size:64" json:"reserved_by,omitempty"`
	ReservedAt *time.Time `gorm:"column:reserved_at" json:"reserved_at,omitempty"`
}

func (PhysicalNumber) TableName() string {
	return "AvailablePhoneNumber"
}
