package tracker

import (
	"context"
	"time"

	"occupancy-status-backend/internal/model"
	"occupancy-status-backend/internal/store"
)

// Tracker owns the decision of when occupancies open and close. It keeps the
// per-room interval log consistent under repeated or redundant signals: a
// second "occupied" never fragments the history and an "unoccupied" with no
// open occupancy never fabricates a close.
type Tracker struct {
	store store.Store
	now   func() time.Time
}

// New creates a Tracker on top of the given store.
func New(s store.Store) *Tracker {
	return &Tracker{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// SetOccupied applies a desired occupancy signal to a room's interval log and
// returns the occupancy that now represents the room's latest state. The room
// id does not need to exist as a room record; occupancies may predate it.
//
//   - occupied=true with no open occupancy: opens a new one starting now.
//   - occupied=true with an open occupancy: no-op, returns the open one.
//   - occupied=false with an open occupancy: sets its end time to now.
//   - occupied=false with none open: no-op, returns the latest (may be nil).
//
// Only the interval log is touched here; the room projection is refreshed
// separately, and must be refreshed after this call so readers never see a
// projection ahead of the history it is derived from.
func (t *Tracker) SetOccupied(ctx context.Context, roomID int64, occupied bool) (*model.Occupancy, error) {
	latest, err := t.store.GetLatestOccupancy(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if occupied {
		if latest != nil && latest.Open() {
			return latest, nil
		}
		now := t.now()
		occ := &model.Occupancy{
			ID:        model.SortKey(now),
			RoomID:    roomID,
			StartTime: now,
		}
		if err := t.store.InsertOccupancy(ctx, occ); err != nil {
			return nil, err
		}
		return occ, nil
	}

	if latest == nil || !latest.Open() {
		return latest, nil
	}
	now := t.now()
	latest.EndTime = &now
	if err := t.store.UpdateOccupancy(ctx, latest); err != nil {
		return nil, err
	}
	return latest, nil
}

// RefreshRoom synchronizes a room's cached projection with a new occupancy
// value. It reports whether the value actually changed; redundant writes leave
// LastUpdate untouched and persist nothing, so they never look like a change
// to notification subscribers.
func (t *Tracker) RefreshRoom(ctx context.Context, room *model.Room, occupied bool) (bool, error) {
	if room.IsOccupied == occupied {
		return false, nil
	}
	room.IsOccupied = occupied
	room.LastUpdate = t.now()
	if err := t.store.UpdateRoom(ctx, room); err != nil {
		return false, err
	}
	return true, nil
}

// IsOccupied derives a room's current occupancy from its interval log. Used
// when creating a room record, since occupancies may exist before the room.
func (t *Tracker) IsOccupied(ctx context.Context, roomID int64) (bool, error) {
	latest, err := t.store.GetLatestOccupancy(ctx, roomID)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.Open(), nil
}
