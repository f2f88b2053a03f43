package handlers

import (
	"net/http"

	"github.com/farellandr/rollcall/internal/helpers"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckInRequest struct {
	Method lifecycle.CheckInMethod `json:"method"`
}

type QRCheckInRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

type CheckInHandler struct {
	checkins *services.CheckInService
	log      *zap.Logger
}

func NewCheckInHandler(checkins *services.CheckInService, log *zap.Logger) *CheckInHandler {
	return &CheckInHandler{checkins: checkins, log: log}
}

// CheckIn records attendance for :id. The body is optional; the method
// defaults to manual.
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	registrationID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	req := CheckInRequest{Method: lifecycle.CheckInManual}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if req.Method == "" {
		req.Method = lifecycle.CheckInManual
	}

	result, err := h.checkins.CheckIn(c.Request.Context(), userID, registrationID, req.Method)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CheckInHandler) CheckInByQR(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req QRCheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.checkins.CheckInByQR(c.Request.Context(), userID, req.QRData)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CheckInHandler) ListCheckIns(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	registrationID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	checkIns, err := h.checkins.ListCheckIns(c.Request.Context(), userID, registrationID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkins": checkIns})
}
