// Package workspace resolves, per request, which organization and project the
// caller is operating in and carries that resolution to nested collaborators.
package workspace

import (
	"context"

	"github.com/axiom-eval/axiom/internal/models"
)

// Context is the immutable tenancy resolution for one request: the acting
// user, the target organization, the optional target project, and the
// membership records permission evaluation needs.
type Context struct {
	User                   *models.User
	OrganizationID         uint
	ProjectID              *uint
	OrganizationMembership *models.OrganizationMembership
	ProjectMembership      *models.ProjectMembership
	IsOrgAdmin             bool
}

// GinContextKey is the key the resolver middleware stores the workspace
// context under in the gin request context.
const GinContextKey = "workspace"

type ctxKey struct{}

// NewContext returns a copy of parent carrying ws. The returned context dies
// with the request; nothing outlives it.
func NewContext(parent context.Context, ws *Context) context.Context {
	return context.WithValue(parent, ctxKey{}, ws)
}

// FromContext extracts the workspace context established by the resolver,
// if any.
func FromContext(ctx context.Context) (*Context, bool) {
	ws, ok := ctx.Value(ctxKey{}).(*Context)
	return ws, ok
}
