package models

import "time"

// Tenant is the isolation boundary for all business data. The current design
// has exactly one administering user per tenant.
type Tenant struct {
	ID          string
	Name        string
	AdminUserID string
	CreatedAt   time.Time
}
