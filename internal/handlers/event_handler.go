package handlers

import (
	"net/http"
	"strings"

	"github.com/farellandr/rollcall/internal/helpers"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadURLPrefix is where the server exposes the upload directory.
const UploadURLPrefix = "/uploads/"

type EventHandler struct {
	events  *services.EventService
	queries *services.QueryService
	upload  helpers.UploadConfig
	log     *zap.Logger
}

func NewEventHandler(events *services.EventService, queries *services.QueryService, uploadDir string, log *zap.Logger) *EventHandler {
	return &EventHandler{
		events:  events,
		queries: queries,
		upload:  helpers.BannerUploadConfig(uploadDir),
		log:     log,
	}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var draft services.EventDraft
	if !bindJSON(c, &draft) {
		return
	}

	event, err := h.events.CreateEvent(c.Request.Context(), userID, draft)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully.",
		"event":   event,
	})
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	event, err := h.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	from, ok := helpers.QueryTime(c, "start_from")
	if !ok {
		return
	}
	to, ok := helpers.QueryTime(c, "start_to")
	if !ok {
		return
	}

	page, err := h.queries.ListEvents(c.Request.Context(), services.EventFilter{
		Title:     c.Query("title"),
		Type:      models.EventType(c.Query("type")),
		Status:    lifecycle.EventStatus(c.Query("status")),
		StartFrom: from,
		StartTo:   to,
		Page:      helpers.QueryInt(c, "page", 1),
		Limit:     helpers.QueryInt(c, "limit", services.DefaultPageSize),
	})
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	var patch services.EventPatch
	if !bindJSON(c, &patch) {
		return
	}

	event, err := h.events.UpdateEvent(c.Request.Context(), eventID, userID, patch)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) transition(apply func(*gin.Context, uuid.UUID, uuid.UUID) (*models.Event, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		eventID, ok := helpers.ParamUUID(c, "id")
		if !ok {
			return
		}

		event, err := apply(c, eventID, userID)
		if err != nil {
			helpers.RespondWithAppError(c, h.log, err)
			return
		}

		c.JSON(http.StatusOK, event)
	}
}

func (h *EventHandler) PublishEvent() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, eventID, userID uuid.UUID) (*models.Event, error) {
		return h.events.PublishEvent(c.Request.Context(), eventID, userID)
	})
}

func (h *EventHandler) CancelEvent() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, eventID, userID uuid.UUID) (*models.Event, error) {
		return h.events.CancelEvent(c.Request.Context(), eventID, userID)
	})
}

func (h *EventHandler) FinishEvent() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, eventID, userID uuid.UUID) (*models.Event, error) {
		return h.events.FinishEvent(c.Request.Context(), eventID, userID)
	})
}

func (h *EventHandler) RevertEventToDraft() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, eventID, userID uuid.UUID) (*models.Event, error) {
		return h.events.RevertEventToDraft(c.Request.Context(), eventID, userID)
	})
}

// UploadBanner replaces the event banner with the multipart "banner" file.
func (h *EventHandler) UploadBanner(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	bannerFile, err := c.FormFile("banner")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Banner file is required.")
		return
	}

	stored, err := helpers.UploadFile(c, bannerFile, "event_banners", h.upload)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	previous, err := h.events.SetEventBanner(c.Request.Context(), eventID, userID, UploadURLPrefix+stored)
	if err != nil {
		h.removeUpload(stored)
		helpers.RespondWithAppError(c, h.log, err)
		return
	}
	if previous != nil && strings.HasPrefix(*previous, UploadURLPrefix) {
		h.removeUpload(strings.TrimPrefix(*previous, UploadURLPrefix))
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Banner uploaded successfully.",
		"banner_url": UploadURLPrefix + stored,
	})
}

func (h *EventHandler) removeUpload(relPath string) {
	if err := helpers.DeleteFile(h.upload.UploadBasePath, relPath); err != nil {
		h.log.Warn("remove upload", zap.String("path", relPath), zap.Error(err))
	}
}

func (h *EventHandler) ListParticipants(c *gin.Context) {
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	participants, err := h.queries.ListParticipants(c.Request.Context(), eventID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *EventHandler) ListRegistrations(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	registrations, err := h.queries.ListEventRegistrations(c.Request.Context(), userID, eventID,
		lifecycle.RegistrationStatus(c.Query("status")))
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrations": registrations})
}

// RegistrationStatus returns the caller's status for the event, or null.
func (h *EventHandler) RegistrationStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	status, err := h.queries.RegistrationStatus(c.Request.Context(), userID, eventID)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *EventHandler) ReviewEligibility(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	eventID, ok := helpers.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.queries.CanReview(c.Request.Context(), userID, eventID); err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"can_review": true})
}
