package models

// All returns the default-shape tables in dependency order, for migrations and tests
func All() []any {
	return []any{
		&VirtualNumber{},
		&Pilot{},
		&PhysicalNumber{},
		&PilotNumberMapping{},
		&Assignment{},
	}
}
