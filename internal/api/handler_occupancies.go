package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetOccupancies handles GET /api/occupancies.
func (h *Handler) GetOccupancies(c *gin.Context) {
	h.listOccupancies(c, nil)
}

// GetRoomOccupancies handles GET /api/rooms/:id/occupancies.
func (h *Handler) GetRoomOccupancies(c *gin.Context) {
	id, ok := roomIDParam(c)
	if !ok {
		return
	}
	h.listOccupancies(c, &id)
}

func (h *Handler) listOccupancies(c *gin.Context, roomID *int64) {
	occs, err := h.store.ListOccupancies(c.Request.Context(), roomID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve occupancies"})
		return
	}
	responses := make([]occupancyResponse, 0, len(occs))
	for _, occ := range occs {
		responses = append(responses, h.occupancyView(occ))
	}
	c.JSON(http.StatusOK, responses)
}

// PostRoomOccupancy handles POST /api/rooms/:id/occupancies?isOccupied=.
// This is the occupancy signal entry point: sensors post the desired state
// and the tracker decides whether anything actually changes. The interval log
// is written before the room projection, and a notification fires only when
// the projection really flipped.
func (h *Handler) PostRoomOccupancy(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	id, ok := roomIDParam(c)
	if !ok {
		return
	}
	occupied, err := strconv.ParseBool(c.Query("isOccupied"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "isOccupied must be true or false"})
		return
	}

	ctx := c.Request.Context()
	occ, err := h.tracker.SetOccupied(ctx, id, occupied)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update occupancy"})
		return
	}

	// The room record is optional; signals may arrive before the room exists.
	room, err := h.store.GetRoom(ctx, id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}
	if room != nil {
		changed, err := h.tracker.RefreshRoom(ctx, room, occupied)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh room"})
			return
		}
		if changed {
			h.notifier.RoomUpdated(*room, true)
		}
	}

	if occ == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, h.occupancyView(*occ))
}

// DeleteRoomOccupancies handles DELETE /api/rooms/:id/occupancies.
func (h *Handler) DeleteRoomOccupancies(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	id, ok := roomIDParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteOccupancies(c.Request.Context(), &id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete occupancies"})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteOccupancies handles DELETE /api/occupancies.
func (h *Handler) DeleteOccupancies(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	if err := h.store.DeleteOccupancies(c.Request.Context(), nil); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete occupancies"})
		return
	}
	c.Status(http.StatusNoContent)
}
