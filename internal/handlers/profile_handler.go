package handlers

import (
	"net/http"

	"github.com/farellandr/rollcall/internal/helpers"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	users   *services.UserService
	queries *services.QueryService
	log     *zap.Logger
}

func NewProfileHandler(users *services.UserService, queries *services.QueryService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, queries: queries, log: log}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *ProfileHandler) MyEvents(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	page, err := h.queries.ListMyEvents(c.Request.Context(), userID,
		helpers.QueryInt(c, "page", 1), helpers.QueryInt(c, "limit", services.DefaultPageSize))
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *ProfileHandler) MyRegistrations(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	registrations, err := h.queries.ListMyRegistrations(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrations": registrations})
}

// SharedEvent reports whether the caller and :id attended a common event.
func (h *ProfileHandler) SharedEvent(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	otherID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	shared, err := h.queries.HasSharedAttendedEvent(c.Request.Context(), userID, otherID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shared_event": shared})
}

func (h *ProfileHandler) DashboardStats(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	stats, err := h.queries.DashboardStats(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
