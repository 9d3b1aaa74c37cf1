package models

// Tenant is an enabled customer account loaded from the tabular source
type Tenant struct {
	ID    string `json:"tenant_id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	// AllowedPilots is nil unless the account row carried an explicit pilot list
	AllowedPilots []string `json:"allowed_pilots,omitempty"`
}

// HasPilotOverride reports whether the account row named its own pilots
func (t Tenant) HasPilotOverride() bool {
	return t.AllowedPilots != nil
}
