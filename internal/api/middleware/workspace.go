package middleware

import (
	"errors"
	"net/http"

	"github.com/axiom-eval/axiom/internal/auth"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// orgHint extracts the organization hint from header or query. The header
// wins when both are present.
func orgHint(c *gin.Context) string {
	if v := c.GetHeader(workspace.OrgHeader); v != "" {
		return v
	}
	if v := c.Query("org_id"); v != "" {
		return v
	}
	return c.Query("organization_id")
}

func projectHint(c *gin.Context) string {
	if v := c.GetHeader(workspace.ProjectHeader); v != "" {
		return v
	}
	return c.Query("project_id")
}

// isMutating reports whether the request method changes state. Only
// non-mutating requests may fall back to default-workspace heuristics.
func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

func abortResolveError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *service.ValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
	case *service.ForbiddenError:
		c.JSON(http.StatusForbidden, gin.H{"error": e.Message})
	default:
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve workspace"})
		}
	}
	c.Abort()
}

// OrganizationContext resolves the request's organization workspace from
// tenancy hints and stores it under workspace.GinContextKey and in the
// request context. Must run after the authentication middleware.
func OrganizationContext(db *gorm.DB) gin.HandlerFunc {
	return resolveWorkspace(db, false)
}

// ProjectContext resolves both the organization and project halves of the
// workspace. Routes operating on project-scoped resources use this.
func ProjectContext(db *gorm.DB) gin.HandlerFunc {
	return resolveWorkspace(db, true)
}

func resolveWorkspace(db *gorm.DB, withProject bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(auth.UserContextKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		user, ok := value.(*models.User)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		mutating := isMutating(c.Request.Method)

		ws, err := workspace.ResolveOrganizationContext(db, user, orgHint(c), mutating)
		if err != nil {
			abortResolveError(c, err)
			return
		}

		if withProject {
			ws, err = workspace.ResolveProjectContext(db, ws, projectHint(c), mutating)
			if err != nil {
				abortResolveError(c, err)
				return
			}
		}

		c.Set(workspace.GinContextKey, ws)
		c.Request = c.Request.WithContext(workspace.NewContext(c.Request.Context(), ws))
		c.Next()
	}
}
