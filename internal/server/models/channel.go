package models

import "time"

// Channel is a tenant's messaging channel. Registration creates one inactive
// placeholder channel; activation happens later, outside this service.
type Channel struct {
	ID              string
	TenantID        string
	WAPhoneNumberID string
	WABusinessID    string
	DisplayName     string
	Status          string
	CreatedAt       time.Time
}
