package visibility

import (
	"fmt"
	"time"

	"occupancy-status-backend/config"
	"occupancy-status-backend/internal/model"
)

// Window is the local time-of-day range during which room status is public.
// Outside it, unauthorized readers get a sanitized "everyone left at closing"
// view, and status flips are withheld from broadcast except for exit events
// inside the post-close grace period.
type Window struct {
	loc      *time.Location
	opensAt  time.Duration // offset from local midnight
	closesAt time.Duration
	grace    time.Duration
}

// NewWindow builds a Window from configuration.
func NewWindow(cfg config.VisibilityConfig) (*Window, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	opensAt, err := config.ParseTimeOfDay(cfg.OpensAt)
	if err != nil {
		return nil, err
	}
	closesAt, err := config.ParseTimeOfDay(cfg.ClosesAt)
	if err != nil {
		return nil, err
	}
	if closesAt <= opensAt {
		return nil, fmt.Errorf("visibility window closes (%s) before it opens (%s)", cfg.ClosesAt, cfg.OpensAt)
	}
	return &Window{
		loc:      loc,
		opensAt:  opensAt,
		closesAt: closesAt,
		grace:    time.Duration(cfg.GraceMinutes) * time.Minute,
	}, nil
}

// ToLocal converts a UTC instant to the window's local time zone. All display
// and policy conversions go through here.
func (w *Window) ToLocal(t time.Time) time.Time {
	return t.In(w.loc)
}

// Contains reports whether the instant falls inside the visible hours.
func (w *Window) Contains(t time.Time) bool {
	d := sinceMidnight(w.ToLocal(t))
	return d >= w.opensAt && d <= w.closesAt
}

// InGrace reports whether the instant is past closing but still within the
// grace period, during which an exit flip is considered worth broadcasting.
func (w *Window) InGrace(t time.Time) bool {
	d := sinceMidnight(w.ToLocal(t))
	return d > w.closesAt && d <= w.closesAt+w.grace
}

// PreviousClose returns the most recent closing instant at or before t: the
// same local day's closing time if t is past it, otherwise the previous day's.
func (w *Window) PreviousClose(t time.Time) time.Time {
	local := w.ToLocal(t)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.loc)
	if sinceMidnight(local) < w.closesAt {
		midnight = midnight.AddDate(0, 0, -1)
	}
	return midnight.Add(w.closesAt)
}

// SanitizeRoom applies the public-view policy to a room. If its last update
// falls outside the visible hours the copy is reported unoccupied with
// LastUpdate clamped to the previous closing time; the stored truth is never
// mutated.
func (w *Window) SanitizeRoom(room model.Room) model.Room {
	if w.Contains(room.LastUpdate) {
		return room
	}
	room.IsOccupied = false
	room.LastUpdate = w.PreviousClose(room.LastUpdate).UTC()
	return room
}

func sinceMidnight(local time.Time) time.Duration {
	return time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
}
