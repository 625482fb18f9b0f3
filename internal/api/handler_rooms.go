package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"occupancy-status-backend/internal/model"
)

type roomInsertRequest struct {
	ID          int64  `json:"id" binding:"required"`
	Description string `json:"description"`
}

type roomUpdateRequest struct {
	Description *string `json:"description"`
	IsOccupied  *bool   `json:"isOccupied"`
}

// GetRooms handles GET /api/rooms. Callers without read authorization get the
// sanitized public view of any room last updated outside visible hours.
func (h *Handler) GetRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
		return
	}

	elevated := h.elevatedRead(c)
	responses := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		if !elevated {
			room = h.window.SanitizeRoom(room)
		}
		responses = append(responses, h.roomView(room))
	}
	c.JSON(http.StatusOK, responses)
}

// GetRoom handles GET /api/rooms/:id.
func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.store.GetRoom(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}
	if room == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	view := *room
	if !h.elevatedRead(c) {
		view = h.window.SanitizeRoom(view)
	}
	c.JSON(http.StatusOK, h.roomView(view))
}

// PostRoom handles POST /api/rooms. The new room's occupancy projection is
// derived from the interval log, since occupancies may predate the room record.
func (h *Handler) PostRoom(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}

	var req roomInsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	occupied, err := h.tracker.IsOccupied(ctx, req.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to derive occupancy"})
		return
	}

	room := newRoom(req.ID, req.Description, occupied)
	if err := h.store.InsertRoom(ctx, room); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert room"})
		return
	}

	h.notifier.RoomCreated(*room)
	c.JSON(http.StatusCreated, h.roomView(*room))
}

// PutRoom handles PUT /api/rooms/:id. Metadata edits persist independently of
// occupancy; a changed isOccupied opens or closes an occupancy first, then
// refreshes the projection, so readers never see the pair inconsistent in the
// wrong direction.
func (h *Handler) PutRoom(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	id, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req roomUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	room, err := h.store.GetRoom(ctx, id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}
	if room == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	occupiedChanged := req.IsOccupied != nil && *req.IsOccupied != room.IsOccupied
	if occupiedChanged {
		// Interval log first, projection after.
		if _, err := h.tracker.SetOccupied(ctx, id, *req.IsOccupied); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update occupancy"})
			return
		}
		room.IsOccupied = *req.IsOccupied
		room.LastUpdate = time.Now().UTC()
	}
	if req.Description != nil {
		room.Description = *req.Description
	}

	if err := h.store.UpdateRoom(ctx, room); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update room"})
		return
	}

	h.notifier.RoomUpdated(*room, occupiedChanged)
	c.JSON(http.StatusOK, h.roomView(*room))
}

// DeleteRoom handles DELETE /api/rooms/:id. The room's occupancy history is
// kept unless includeOccupancies=true is passed explicitly.
func (h *Handler) DeleteRoom(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	id, ok := roomIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	room, err := h.store.GetRoom(ctx, id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}
	if room == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if err := h.store.DeleteRoom(ctx, id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete room"})
		return
	}
	if c.Query("includeOccupancies") == "true" {
		if err := h.store.DeleteOccupancies(ctx, &id); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete occupancies"})
			return
		}
	}

	h.notifier.RoomsDeleted([]model.Room{*room})
	c.Status(http.StatusNoContent)
}

// DeleteRooms handles DELETE /api/rooms.
func (h *Handler) DeleteRooms(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}

	ctx := c.Request.Context()
	rooms, err := h.store.ListRooms(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
		return
	}
	if err := h.store.DeleteAllRooms(ctx); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rooms"})
		return
	}

	h.notifier.RoomsDeleted(rooms)
	c.Status(http.StatusNoContent)
}

func newRoom(id int64, description string, occupied bool) *model.Room {
	return &model.Room{
		ID:          id,
		Description: description,
		IsOccupied:  occupied,
		LastUpdate:  time.Now().UTC(),
	}
}

func roomIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return 0, false
	}
	return id, true
}
