package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"facequery-backend/internal/auth"
	"facequery-backend/internal/database"
	"facequery-backend/internal/models"
)

// UserStore is the slice of the database client the auth handler needs.
type UserStore interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
}

type AuthHandler struct {
	users  UserStore
	tokens *auth.TokenIssuer
	log    *zap.SugaredLogger
}

func NewAuthHandler(users UserStore, tokens *auth.TokenIssuer, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		log:    log,
	}
}

// Signup godoc
// @Summary     Create an account
// @Description Registers a new user and logs them in immediately by returning a bearer token.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.SignupRequest true "Account details"
// @Success     201 {object} models.AuthResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid signup request",
			Message: err.Error(),
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create account"})
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := h.users.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrDuplicateUsername) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create account",
			Message: err.Error(),
		})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to issue token"})
		return
	}

	h.log.Infow("user signed up", "user_id", user.ID, "username", user.Username)

	c.Header("Location", "/")
	c.JSON(http.StatusCreated, models.AuthResponse{
		Token: token,
		User:  models.NewUserResponse(user),
	})
}

// Login godoc
// @Summary     Log in
// @Description Verifies credentials and returns a bearer token.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.LoginRequest true "Credentials"
// @Success     200 {object} models.AuthResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid login request",
			Message: err.Error(),
		})
		return
	}

	// Same response for unknown user and wrong password.
	user, err := h.users.GetUserByUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid username or password"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid username or password"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  models.NewUserResponse(user),
	})
}
