package models

// PilotNumberMapping records a physical number already bound to a pilot as an outgoing caller id
type PilotNumberMapping struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PilotID     string `gorm:"column:pilot;size:64;not null;index" json:"pilot"`
	PhoneNumber string `gorm:"column:phone_number;size:32;not null;index" json:"phone_number"`
}

func (PilotNumberMapping) TableName() string {
	return "OutgoingCallerIds"
}
