package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/internal/infrastructure/middleware"
	apperrors "github.com/vopenia-io/meet/pkg/errors"
	"github.com/vopenia-io/meet/pkg/utils"
	"github.com/vopenia-io/meet/pkg/validation"
)

type LobbyHandler struct {
	rooms  *RoomHandler
	lobby  ports.LobbyService
	cookie *ParticipantCookie
	logger *zap.SugaredLogger
}

func NewLobbyHandler(rooms *RoomHandler, lobby ports.LobbyService, cookie *ParticipantCookie, logger *zap.SugaredLogger) *LobbyHandler {
	return &LobbyHandler{
		rooms:  rooms,
		lobby:  lobby,
		cookie: cookie,
		logger: logger,
	}
}

type participantResponse struct {
	ID       string                    `json:"id"`
	Username string                    `json:"username"`
	Status   domain.ParticipantStatus  `json:"status"`
	Color    string                    `json:"color"`
	LiveKit  *domain.LiveSessionConfig `json:"livekit"`
}

func (h *LobbyHandler) RequestEntry(c *gin.Context) {
	room, ok := h.rooms.loadRoom(c)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	username := utils.TruncateString(utils.SanitizeString(req.Username), validation.MaxUsernameLength)
	if err := validation.ValidateUsername(username); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	participantID := h.cookie.Read(c)
	participant, session, err := h.lobby.RequestEntry(
		c.Request.Context(), room, middleware.Principal(c), participantID, username,
	)
	if err != nil {
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "Failed to process entry request", http.StatusInternalServerError))
		return
	}

	if participant.ID != participantID {
		if err := h.cookie.Write(c, participant.ID); err != nil {
			h.logger.Errorw("failed to encode participant cookie",
				"room_id", room.ID,
				"error", err,
			)
		}
	}

	c.JSON(http.StatusOK, participantResponse{
		ID:       participant.ID,
		Username: participant.Username,
		Status:   participant.Status,
		Color:    participant.Color,
		LiveKit:  session,
	})
}

func (h *LobbyHandler) Enter(c *gin.Context) {
	room, ok := h.rooms.loadAdministeredRoom(c)
	if !ok {
		return
	}
	if room.IsPublic() {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room has no lobby system."})
		return
	}

	var req struct {
		ParticipantID string `json:"participant_id" binding:"required"`
		AllowEntry    *bool  `json:"allow_entry" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateParticipantID(req.ParticipantID); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	err := h.lobby.HandleParticipantEntry(c.Request.Context(), room.ID, req.ParticipantID, *req.AllowEntry)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Participant was updated."})
	case errors.Is(err, domain.ErrParticipantNotFound), errors.Is(err, domain.ErrParticipantParsing):
		c.JSON(http.StatusNotFound, gin.H{"message": "Participant not found."})
	default:
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "Failed to update participant", http.StatusInternalServerError))
	}
}

func (h *LobbyHandler) WaitingParticipants(c *gin.Context) {
	room, ok := h.rooms.loadAdministeredRoom(c)
	if !ok {
		return
	}
	if room.IsPublic() {
		c.JSON(http.StatusOK, gin.H{"participants": []*domain.Participant{}})
		return
	}

	participants, err := h.lobby.ListWaitingParticipants(c.Request.Context(), room.ID)
	if err != nil {
		_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "Failed to list waiting participants", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}
