package model

import "time"

// Item is a cataloged object. LocationID, CategoryID and OwnerID reference
// the numeric ids of the respective entities. ImageUUID is the stable
// external reference to the item's attachment; the attachment itself is
// stored under the item's numeric id.
type Item struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	LocationID  int64      `json:"location_id"`
	CategoryID  int64      `json:"category_id"`
	OwnerID     int64      `json:"owner_id"`
	Price       *float64   `json:"price"`
	ImageUUID   *string    `json:"image_uuid"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
