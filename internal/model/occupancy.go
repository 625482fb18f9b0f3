package model

import (
	"math"
	"time"
)

// Occupancy represents one contiguous span during which a room was occupied.
// A nil EndTime means the occupancy is still ongoing. At most one occupancy
// per room may be open at any moment.
//
// ID is a reverse-time sort key: within a room, ascending ID order is
// newest-first, so the latest occupancy is always the first row of an indexed
// scan rather than a full-history sort.
type Occupancy struct {
	ID        int64      `gorm:"primaryKey;autoIncrement:false;index:idx_occupancies_room_sort,priority:2" json:"id"`
	RoomID    int64      `gorm:"not null;index:idx_occupancies_room_sort,priority:1" json:"roomId"`
	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// SortKey derives the reverse-time occupancy key for a start time.
func SortKey(startTime time.Time) int64 {
	return math.MaxInt64 - startTime.UTC().UnixNano()
}

// Open reports whether the occupancy is still ongoing.
func (o *Occupancy) Open() bool {
	return o.EndTime == nil
}
