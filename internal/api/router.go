package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/axiom-eval/axiom/internal/api/handlers"
	"github.com/axiom-eval/axiom/internal/api/middleware"
	"github.com/axiom-eval/axiom/internal/auth"
	"github.com/axiom-eval/axiom/internal/config"
	"github.com/axiom-eval/axiom/internal/logstream"
	"github.com/axiom-eval/axiom/internal/queue"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, q queue.Queue, broker *logstream.LogBroker) *gin.Engine {
	// Set Gin mode
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	var authenticator auth.Authenticator = auth.NewBasicAuthenticator(db, cfg.Auth.JWTSecret)

	infoHandler := handlers.NewInfoHandler(db)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck)
		public.GET("/info", infoHandler.GetInfo)
		public.POST("/auth/login", handlers.Login(db, authenticator))
		public.POST("/auth/register", handlers.Register(db, authenticator))
	}

	// Initialize handlers
	orgHandler := handlers.NewOrganizationHandler(db)
	projectHandler := handlers.NewProjectHandler(db)
	membershipHandler := handlers.NewMembershipHandler(db)
	roleHandler := handlers.NewRoleHandler(db)
	grantHandler := handlers.NewGrantHandler(db)
	invitationHandler := handlers.NewInvitationHandler(db)
	suiteHandler := handlers.NewSuiteHandler(db)
	agentHandler := handlers.NewAgentHandler(db)
	runHandler := handlers.NewRunHandler(db, q, broker)
	comparisonHandler := handlers.NewComparisonHandler(db)
	traceHandler := handlers.NewTraceHandler(db)
	costPreviewHandler := handlers.NewCostPreviewHandler(db)
	notificationHandler := handlers.NewNotificationHandler(db)
	auditLogHandler := handlers.NewAuditLogHandler(db)

	// Authenticated routes that need no workspace resolution
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/auth/me", handlers.Me)
		protected.POST("/auth/logout", handlers.Logout(db))
		protected.GET("/organizations", orgHandler.ListOrganizations)
		protected.POST("/organizations", orgHandler.CreateOrganization)
		protected.POST("/invitations/accept", invitationHandler.AcceptInvitation)
	}

	// Organization-scoped routes: the workspace resolver establishes the
	// target organization from headers/query before the handler runs.
	orgScoped := router.Group("/api/v1")
	orgScoped.Use(authenticator.Middleware(), middleware.OrganizationContext(db))
	{
		orgScoped.GET("/org", orgHandler.GetOrganization)
		orgScoped.PATCH("/org", orgHandler.UpdateOrganization)
		orgScoped.DELETE("/org", orgHandler.DeleteOrganization)
		orgScoped.GET("/permissions", orgHandler.ListPermissionCatalog)

		orgScoped.GET("/org/members", membershipHandler.ListOrgMembers)
		orgScoped.POST("/org/members", membershipHandler.AddOrgMember)
		orgScoped.PATCH("/org/members/:user_id", membershipHandler.UpdateOrgMemberRole)
		orgScoped.DELETE("/org/members/:user_id", membershipHandler.RemoveOrgMember)

		orgScoped.GET("/org/roles", roleHandler.ListOrgRoles)
		orgScoped.POST("/org/roles", roleHandler.CreateOrgRole)
		orgScoped.PUT("/org/roles/:id/permissions", roleHandler.ReplaceOrgRolePermissions)
		orgScoped.DELETE("/org/roles/:id", roleHandler.DeleteOrgRole)

		orgScoped.GET("/org/project-roles", roleHandler.ListProjectRoles)
		orgScoped.POST("/org/project-roles", roleHandler.CreateProjectRole)
		orgScoped.PUT("/org/project-roles/:id/permissions", roleHandler.ReplaceProjectRolePermissions)
		orgScoped.DELETE("/org/project-roles/:id", roleHandler.DeleteProjectRole)

		orgScoped.GET("/org/grants", grantHandler.ListGrants)
		orgScoped.POST("/org/grants", grantHandler.CreateGrant)
		orgScoped.DELETE("/org/grants/:id", grantHandler.DeleteGrant)

		orgScoped.GET("/org/invitations", invitationHandler.ListInvitations)
		orgScoped.POST("/org/invitations", invitationHandler.CreateInvitation)
		orgScoped.DELETE("/org/invitations/:id", invitationHandler.RevokeInvitation)

		orgScoped.GET("/projects", projectHandler.ListProjects)
		orgScoped.POST("/projects", projectHandler.CreateProject)
		orgScoped.GET("/projects/:id", projectHandler.GetProject)
		orgScoped.PATCH("/projects/:id", projectHandler.UpdateProject)
		orgScoped.POST("/projects/:id/archive", projectHandler.ArchiveProject)
		orgScoped.POST("/projects/:id/unarchive", projectHandler.UnarchiveProject)

		orgScoped.GET("/projects/:id/members", membershipHandler.ListProjectMembers)
		orgScoped.POST("/projects/:id/members", membershipHandler.AddProjectMember)
		orgScoped.PATCH("/projects/:id/members/:user_id", membershipHandler.UpdateProjectMemberRole)
		orgScoped.DELETE("/projects/:id/members/:user_id", membershipHandler.RemoveProjectMember)

		orgScoped.GET("/notifications", notificationHandler.ListNotifications)
		orgScoped.POST("/notifications/read-all", notificationHandler.MarkAllNotificationsRead)
		orgScoped.POST("/notifications/:id/read", notificationHandler.MarkNotificationRead)

		orgScoped.GET("/audit-logs", auditLogHandler.ListAuditLogs)
	}

	// Project-scoped routes: workspace resolution includes the target project.
	projectScoped := router.Group("/api/v1")
	projectScoped.Use(authenticator.Middleware(), middleware.ProjectContext(db))
	{
		projectScoped.GET("/suites", suiteHandler.ListSuites)
		projectScoped.POST("/suites", suiteHandler.CreateSuite)
		projectScoped.GET("/suites/:id", suiteHandler.GetSuite)
		projectScoped.DELETE("/suites/:id", suiteHandler.DeleteSuite)
		projectScoped.POST("/suites/:id/share", suiteHandler.ShareSuite)
		projectScoped.GET("/suites/:id/queries", suiteHandler.ListQueries)
		projectScoped.POST("/suites/:id/queries", suiteHandler.AddQuery)

		projectScoped.GET("/agents", agentHandler.ListAgents)
		projectScoped.POST("/agents", agentHandler.CreateAgent)
		projectScoped.GET("/agents/:id", agentHandler.GetAgent)
		projectScoped.PUT("/agents/:id", agentHandler.UpdateAgent)
		projectScoped.DELETE("/agents/:id", agentHandler.DeleteAgent)
		projectScoped.POST("/agents/:id/share", agentHandler.ShareAgent)

		projectScoped.GET("/runs", runHandler.ListRuns)
		projectScoped.POST("/runs", runHandler.CreateRun)
		projectScoped.GET("/runs/:id", runHandler.GetRun)
		projectScoped.DELETE("/runs/:id", runHandler.DeleteRun)
		projectScoped.POST("/runs/:id/cancel", runHandler.CancelRun)
		projectScoped.GET("/runs/:id/results", runHandler.ListResults)
		projectScoped.POST("/runs/:id/results/:result_id/grade", runHandler.GradeResult)
		projectScoped.GET("/runs/:id/logs/stream", runHandler.StreamRunLogs)

		projectScoped.GET("/traces", traceHandler.ListTraces)
		projectScoped.GET("/traces/summary", traceHandler.TraceSummary)
		projectScoped.GET("/traces/:id", traceHandler.GetTrace)

		projectScoped.POST("/cost-previews", costPreviewHandler.CreateCostPreview)
		projectScoped.GET("/cost-previews", costPreviewHandler.ListCostPreviews)
		projectScoped.GET("/cost-previews/:id", costPreviewHandler.GetCostPreview)

		projectScoped.GET("/comparisons", comparisonHandler.ListComparisons)
		projectScoped.POST("/comparisons", comparisonHandler.CreateComparison)
		projectScoped.GET("/comparisons/:id", comparisonHandler.GetComparison)
		projectScoped.DELETE("/comparisons/:id", comparisonHandler.DeleteComparison)
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Org-Id, X-Project-Id")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
