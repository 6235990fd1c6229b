package handlers

import (
	"errors"
	"net/http"

	"github.com/axiom-eval/axiom/internal/auth"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error payload returned by all endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps service-layer errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError
	var forbiddenErr *service.ForbiddenError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: forbiddenErr.Message})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// currentUser returns the authenticated user set by the auth middleware
func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(auth.UserContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// currentWorkspace returns the workspace context set by the resolver
// middleware
func currentWorkspace(c *gin.Context) *workspace.Context {
	value, exists := c.Get(workspace.GinContextKey)
	if !exists {
		return nil
	}
	ws, _ := value.(*workspace.Context)
	return ws
}
