package notify

import (
	"log"
	"time"

	"occupancy-status-backend/internal/model"
	"occupancy-status-backend/internal/visibility"
)

// ChangeType labels a room-state change for subscribers.
type ChangeType int

const (
	ChangeNew ChangeType = iota
	ChangeUpdated
	ChangeDeleted
	// ChangeHidden marks an out-of-hours occupancy flip: the store is updated
	// but nothing is broadcast.
	ChangeHidden
)

// String returns the wire label for a change type. An unknown value is a
// programming error and panics.
func (c ChangeType) String() string {
	switch c {
	case ChangeNew:
		return "new"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	case ChangeHidden:
		return "hiddenUpdate"
	}
	panic("notify: unknown change type")
}

// Broadcaster delivers a roomsChanged event to all live subscribers.
// Delivery is fire-and-forget; implementations must not return errors that
// could roll back the state change that triggered the event.
type Broadcaster interface {
	BroadcastRoomsChanged(changeType string, rooms []model.Room)
}

// Dispatcher queues an availability push for a room.
type Dispatcher interface {
	Dispatch(roomID int64)
}

// Notifier decides whether a room change is broadcast, and in what shape.
type Notifier struct {
	window *visibility.Window
	hub    Broadcaster
	pushes Dispatcher
	now    func() time.Time
}

// New creates a Notifier. pushes may be nil when web push is not configured.
func New(window *visibility.Window, hub Broadcaster, pushes Dispatcher) *Notifier {
	return &Notifier{
		window: window,
		hub:    hub,
		pushes: pushes,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Classify applies the visible-hours policy to an update. Occupancy flips
// outside the window are downgraded to ChangeHidden, unless the flip is an
// exit that happens within the grace period after closing. Creation and
// deletion events are never suppressed.
func (n *Notifier) Classify(change ChangeType, occupiedFlip bool, occupied bool, at time.Time) ChangeType {
	if change != ChangeUpdated || !occupiedFlip {
		return change
	}
	if n.window.Contains(at) {
		return ChangeUpdated
	}
	if !occupied && n.window.InGrace(at) {
		return ChangeUpdated
	}
	return ChangeHidden
}

// RoomCreated broadcasts a new room.
func (n *Notifier) RoomCreated(room model.Room) {
	n.emit(ChangeNew, []model.Room{room})
}

// RoomsDeleted broadcasts removed rooms.
func (n *Notifier) RoomsDeleted(rooms []model.Room) {
	if len(rooms) == 0 {
		return
	}
	n.emit(ChangeDeleted, rooms)
}

// RoomUpdated broadcasts a room change, applying the visible-hours policy
// when the change includes an occupancy flip. A flip to unoccupied that is
// worth broadcasting also queues availability pushes for subscribers.
func (n *Notifier) RoomUpdated(room model.Room, occupiedFlip bool) {
	change := n.Classify(ChangeUpdated, occupiedFlip, room.IsOccupied, n.now())
	if change == ChangeHidden {
		log.Printf("Suppressing out-of-hours update for room %d", room.ID)
		return
	}
	n.emit(change, []model.Room{room})

	if occupiedFlip && !room.IsOccupied && n.pushes != nil {
		n.pushes.Dispatch(room.ID)
	}
}

func (n *Notifier) emit(change ChangeType, rooms []model.Room) {
	n.hub.BroadcastRoomsChanged(change.String(), rooms)
}
