package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/internal/infrastructure/middleware"
	apperrors "github.com/vopenia-io/meet/pkg/errors"
	"github.com/vopenia-io/meet/pkg/validation"
)

type RoomHandler struct {
	rooms ports.RoomService
}

func NewRoomHandler(rooms ports.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type roomResponse struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Slug        string                 `json:"slug"`
	AccessLevel domain.RoomAccessLevel `json:"access_level"`
	IsAdmin     bool                   `json:"is_administrable"`
	PinCode     string                 `json:"pin_code,omitempty"`
}

func newRoomResponse(room *domain.Room, principal domain.Principal) roomResponse {
	resp := roomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Slug:        room.Slug,
		AccessLevel: room.AccessLevel,
		IsAdmin:     room.HasPrivileges(principal.ID),
	}
	if resp.IsAdmin {
		resp.PinCode = room.PinCode
	}
	return resp
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name        string                 `json:"name" binding:"required"`
		AccessLevel domain.RoomAccessLevel `json:"access_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateRoomName(req.Name); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if req.AccessLevel != "" && !req.AccessLevel.Valid() {
		_ = c.Error(apperrors.NewInvalidInputError("invalid access_level"))
		return
	}

	principal := middleware.Principal(c)
	room, err := h.rooms.CreateRoom(c.Request.Context(), principal, req.Name, req.AccessLevel)
	if err != nil {
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "Failed to create room", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, newRoomResponse(room, principal))
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRoomResponse(room, middleware.Principal(c)))
}

// loadRoom resolves the :id path parameter. On failure the error is attached
// to c and false is returned.
func (h *RoomHandler) loadRoom(c *gin.Context) (*domain.Room, bool) {
	roomID, err := validation.ValidateRoomID(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.NewNotFoundError("room"))
		return nil, false
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		_ = c.Error(apperrors.NewNotFoundError("room"))
		return nil, false
	}
	if err != nil {
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "Failed to load room", http.StatusInternalServerError))
		return nil, false
	}
	return room, true
}

// loadAdministeredRoom resolves the room and checks the caller holds
// privileges on it. ok is false once a response is set.
func (h *RoomHandler) loadAdministeredRoom(c *gin.Context) (*domain.Room, bool) {
	room, ok := h.loadRoom(c)
	if !ok {
		return nil, false
	}
	if !room.HasPrivileges(middleware.Principal(c).ID) {
		_ = c.Error(apperrors.NewForbiddenError("You do not have permission to perform this action."))
		return nil, false
	}
	return room, true
}
