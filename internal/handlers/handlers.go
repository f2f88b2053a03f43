package handlers

import (
	"net/http"

	"github.com/farellandr/rollcall/internal/helpers"
	"github.com/farellandr/rollcall/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return uuid.Nil, false
	}
	return userID, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return false
	}
	return true
}
