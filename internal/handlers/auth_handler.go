package handlers

import (
	"net/http"
	"time"

	"github.com/farellandr/rollcall/internal/helpers"
	"github.com/farellandr/rollcall/internal/middleware"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SignUpRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	City     *string `json:"city"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthHandler struct {
	users    *services.UserService
	secret   string
	tokenTTL time.Duration
	log      *zap.Logger
}

func NewAuthHandler(users *services.UserService, secret string, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, tokenTTL: tokenTTL, log: log}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.SignUp(c.Request.Context(), services.SignUp{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		City:     req.City,
	})
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    user.Summary(),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		helpers.RespondWithAppError(c, h.log, err)
		return
	}

	token, err := middleware.IssueToken(h.secret, user.ID, h.tokenTTL, time.Now())
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user.Summary(),
	})
}
