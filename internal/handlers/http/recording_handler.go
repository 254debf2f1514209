package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	apperrors "github.com/vopenia-io/meet/pkg/errors"
	"github.com/vopenia-io/meet/pkg/validation"
)

type RecordingHandler struct {
	rooms      *RoomHandler
	recordings ports.RecordingService
	enabled    bool
}

// NewRecordingHandler serves the recording actions of a room. When enabled is
// false both actions answer 403 before the room is looked up.
func NewRecordingHandler(rooms *RoomHandler, recordings ports.RecordingService, enabled bool) *RecordingHandler {
	return &RecordingHandler{
		rooms:      rooms,
		recordings: recordings,
		enabled:    enabled && recordings != nil,
	}
}

func (h *RecordingHandler) checkEnabled(c *gin.Context) bool {
	if !h.enabled {
		_ = c.Error(apperrors.WrapError(domain.ErrRecordingDisabled, apperrors.ErrCodeForbidden,
			"Access denied, recording is disabled.", http.StatusForbidden))
		return false
	}
	return true
}

func (h *RecordingHandler) StartRecording(c *gin.Context) {
	if !h.checkEnabled(c) {
		return
	}
	room, ok := h.rooms.loadAdministeredRoom(c)
	if !ok {
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateNonEmptyString(req.Mode, "recording mode"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("Recording mode is required."))
		return
	}
	mode, ok := domain.ParseRecordingMode(req.Mode)
	if !ok {
		_ = c.Error(apperrors.NewInvalidInputError("Invalid recording mode. Choose between screen_recording or transcript."))
		return
	}

	_, err := h.recordings.StartRecording(c.Request.Context(), room, mode)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Recording successfully started for room %s", room.Slug)})
	case errors.Is(err, domain.ErrRecordingInProgress):
		_ = c.Error(apperrors.NewConflictError("A recording is already in progress for this room."))
	default:
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeActionFailed,
			fmt.Sprintf("Recording failed to start for room %s", room.Slug), http.StatusInternalServerError))
	}
}

func (h *RecordingHandler) StopRecording(c *gin.Context) {
	if !h.checkEnabled(c) {
		return
	}
	room, ok := h.rooms.loadAdministeredRoom(c)
	if !ok {
		return
	}

	_, err := h.recordings.StopRecording(c.Request.Context(), room)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Recording stopped for room %s.", room.Slug)})
	case errors.Is(err, domain.ErrNoActiveRecording):
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeNotFound,
			"No active recording found for this room.", http.StatusNotFound))
	default:
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeActionFailed,
			fmt.Sprintf("Recording failed to stop for room %s", room.Slug), http.StatusInternalServerError))
	}
}
