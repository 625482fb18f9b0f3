package model

import "time"

// Room represents a single tracked room. IsOccupied and LastUpdate are a
// cached projection of the room's occupancy history: IsOccupied is true
// exactly when the room's latest occupancy has no end time.
type Room struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Description string    `gorm:"size:256;not null" json:"description"`
	IsOccupied  bool      `gorm:"not null" json:"isOccupied"`
	LastUpdate  time.Time `gorm:"not null" json:"lastUpdate"`
}
