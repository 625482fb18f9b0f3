package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"occupancy-status-backend/internal/auth"
	"occupancy-status-backend/internal/model"
	"occupancy-status-backend/internal/notify"
	"occupancy-status-backend/internal/store"
	"occupancy-status-backend/internal/tracker"
	"occupancy-status-backend/internal/visibility"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	tracker  *tracker.Tracker
	notifier *notify.Notifier
	window   *visibility.Window
	policy   *auth.Policy
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, t *tracker.Tracker, n *notify.Notifier, w *visibility.Window, p *auth.Policy, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		tracker:  t,
		notifier: n,
		window:   w,
		policy:   p,
		webpush:  webpushOptions,
	}
}

// requireWrite aborts with 401 unless the request carries a valid write
// passcode. Write handlers call this before touching the store.
func (h *Handler) requireWrite(c *gin.Context) bool {
	if !h.policy.IsAuthorized(c.Query("passcode"), auth.Write) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "wrong passcode"})
		return false
	}
	return true
}

// elevatedRead reports whether the caller may see rooms without the
// out-of-hours sanitization. A failed read passcode is not an error; the
// caller just gets the public view.
func (h *Handler) elevatedRead(c *gin.Context) bool {
	return h.policy.IsAuthorized(c.Query("passcode"), auth.Read)
}

// roomView converts a room for the API response, with LastUpdate in the
// configured display timezone.
func (h *Handler) roomView(room model.Room) roomResponse {
	return roomResponse{
		ID:          room.ID,
		Description: room.Description,
		IsOccupied:  room.IsOccupied,
		LastUpdate:  h.window.ToLocal(room.LastUpdate),
	}
}

// occupancyView converts an occupancy for the API response.
func (h *Handler) occupancyView(occ model.Occupancy) occupancyResponse {
	resp := occupancyResponse{
		ID:        occ.ID,
		RoomID:    occ.RoomID,
		StartTime: h.window.ToLocal(occ.StartTime),
	}
	if occ.EndTime != nil {
		end := h.window.ToLocal(*occ.EndTime)
		resp.EndTime = &end
	}
	return resp
}

type roomResponse struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	IsOccupied  bool      `json:"isOccupied"`
	LastUpdate  time.Time `json:"lastUpdate"`
}

type occupancyResponse struct {
	ID        int64      `json:"id"`
	RoomID    int64      `json:"roomId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}
