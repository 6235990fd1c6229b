package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/axiom-eval/axiom/internal/audit"
	"github.com/axiom-eval/axiom/internal/auth"
	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRequest is the signup payload. An invitation token may be supplied
// to join the inviting organization in the same step.
type RegisterRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	InvitationToken string `json:"invitation_token,omitempty"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Login credentials"
// @Success 200 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func Login(db *gorm.DB, authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		resp, err := authenticator.Login(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				audit.LogAction(db, nil, nil, audit.ActionLoginFailed, "user", gin.H{"email": req.Email})
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		audit.LogAction(db, nil, &resp.User.ID, audit.ActionLogin, "user", nil)
		c.JSON(http.StatusOK, resp)
	}
}

// Register godoc
// @Summary Create an account
// @Description Register a new user and provision their personal organization
// @Tags auth
// @Accept json
// @Produce json
// @Param account body RegisterRequest true "Account details"
// @Success 201 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func Register(db *gorm.DB, authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "an account with this email already exists"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		user := models.User{
			FullName:     req.FullName,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create user"})
			return
		}

		// Every account gets a personal organization where it is org admin
		if _, err := authz.CreateOrganizationWithDefaults(db, req.FullName, &user.ID, true, false); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to provision personal organization"})
			return
		}

		audit.LogAction(db, nil, &user.ID, audit.ActionCreateUser, "user", gin.H{"email": email})

		if req.InvitationToken != "" {
			invitation, err := service.AcceptInvitation(db, req.InvitationToken, &user)
			if err != nil {
				// The account exists either way; the token can still be
				// redeemed through the accept endpoint afterwards.
				slog.Warn("Invitation not accepted during signup", "user_id", user.ID, "error", err)
			} else {
				audit.LogAction(db, &invitation.OrganizationID, &user.ID, audit.ActionAcceptInvitation, "invitation",
					gin.H{"invitation_id": invitation.ID})
			}
		}

		resp, err := authenticator.Login(email, req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// Logout godoc
// @Summary Log out
// @Description Tokens are stateless; logout is recorded for auditing and the client discards the token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /auth/logout [post]
func Logout(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := currentUser(c); user != nil {
			audit.LogAction(db, nil, &user.ID, audit.ActionLogout, "user", nil)
		}
		c.Status(http.StatusNoContent)
	}
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}
