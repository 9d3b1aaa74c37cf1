package models

// Pilot is a trunk/carrier route whose liveness gates number assignment
type Pilot struct {
	ID    string `gorm:"column:pilot;primaryKey;size:64" json:"pilot"`
	State string `gorm:"column:status;size:32" json:"status"`
}

func (Pilot) TableName() string {
	return "Pri"
}
