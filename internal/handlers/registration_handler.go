package handlers

import (
	"net/http"

	"github.com/farellandr/rollcall/internal/helpers"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

type UpdateStatusRequest struct {
	Status lifecycle.RegistrationStatus `json:"status" binding:"required"`
}

type RegistrationHandler struct {
	registrations *services.RegistrationService
	log           *zap.Logger
}

func NewRegistrationHandler(registrations *services.RegistrationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, log: log}
}

func (h *RegistrationHandler) Register(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	registration, err := h.registrations.Register(c.Request.Context(), userID, eventID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, registration)
}

func (h *RegistrationHandler) Cancel(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	registrationID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	registration, err := h.registrations.CancelRegistration(c.Request.Context(), userID, registrationID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, registration)
}

func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	registrationID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	registration, err := h.registrations.UpdateRegistrationStatus(c.Request.Context(), userID, registrationID, req.Status)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, registration)
}

func (h *RegistrationHandler) Card(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	registrationID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	card, err := h.registrations.VirtualCard(c.Request.Context(), userID, registrationID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// CardQR renders the card payload as a PNG for scanning at the door.
func (h *RegistrationHandler) CardQR(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	registrationID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	card, err := h.registrations.VirtualCard(c.Request.Context(), userID, registrationID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	qrImage, err := qrcode.Encode(card.QRCodeData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
