package model

import "time"

// Image is an item's binary attachment. It is keyed by the owning item's
// numeric id, not by its own identity; the stable reference lives on the
// item record as ImageUUID.
type Image struct {
	ItemID    int64     `json:"item_id"`
	Data      []byte    `json:"-"`
	Filename  string    `json:"filename"`
	MIME      string    `json:"mime"`
	CreatedAt time.Time `json:"created_at"`
}

// Counter holds the next numeric id for one entity type.
type Counter struct {
	Entity string `json:"entity"`
	NextID int64  `json:"next_id"`
}
