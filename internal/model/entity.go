package model

import "time"

// Entity is the common record shape for locations, categories and owners.
// ID is the provider-scoped sequential numeric identity; UUID is the
// globally unique external identity, assigned once and never changed.
type Entity struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
