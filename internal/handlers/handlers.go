package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"doctrack/api/internal/config"
	"doctrack/api/internal/middleware"
	"doctrack/api/internal/notify"
	"doctrack/api/internal/repository"
	"doctrack/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	db          *pgxpool.Pool
	cache       *redis.Client
	users       *repository.UserRepository
	authService *service.AuthService
	sessions    *service.SessionService
	roleService *service.RoleService
	permService *service.PermissionService
	limiter     *service.LoginRateLimiter
	gate        *middleware.Gate
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	attemptRepo := repository.NewLoginAttemptRepository(db)
	dirRepo := repository.NewDirectoryRepository(db)

	notifier := notify.NewPublisher(cache, log)

	sessionService := service.NewSessionService(sessionRepo, notifier, cfg.Auth, log)
	limiter := service.NewLoginRateLimiter(attemptRepo, cfg.RateLimit, log)
	roleService := service.NewRoleService(roleRepo, permRepo, dirRepo, log)
	permService := service.NewPermissionService(permRepo, log)
	authService := service.NewAuthService(userRepo, sessionService, limiter, roleRepo, dirRepo, cfg.Auth, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		db:          db,
		cache:       cache,
		users:       userRepo,
		authService: authService,
		sessions:    sessionService,
		roleService: roleService,
		permService: permService,
		limiter:     limiter,
		gate:        middleware.NewGate(roleService, log),
	}
}

// Sessions exposes the session service to the purge scheduler.
func (h HandlerSet) Sessions() *service.SessionService { return h.sessions }

// Limiter exposes the rate limiter to the purge scheduler.
func (h HandlerSet) Limiter() *service.LoginRateLimiter { return h.limiter }

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	authed := v1.Group("")
	authed.Use(middleware.Auth(h.cfg.Auth, h.users, h.sessions))

	me := authed.Group("/auth")
	me.POST("/logout", h.Logout)
	me.GET("/me", h.Me)
	me.POST("/change-password", h.ChangePassword)
	me.GET("/sessions", h.ListSessions)
	me.DELETE("/sessions/:sessionId", h.RevokeSession)
	me.POST("/sessions/revoke-others", h.RevokeOtherSessions)

	users := authed.Group("/users")
	users.POST("", h.gate.RequireOne("users.create"), h.RegisterUser)
	users.GET("", h.gate.RequireAny("users.view", "users.view.all", "area_mgmt.users.view"), h.ListUsers)

	roles := authed.Group("/roles")
	roles.GET("", h.gate.RequireOne("roles.view"), h.ListRoles)
	roles.POST("", h.gate.RequireOne("roles.create"), h.CreateRole)
	roles.PATCH("/:roleId", h.gate.RequireOne("roles.update"), h.UpdateRole)
	roles.DELETE("/:roleId", h.gate.RequireOne("roles.delete"), h.DeleteRole)
	roles.GET("/:roleId/permissions", h.gate.RequireOne("roles.view"), h.ListRolePermissions)
	roles.PUT("/:roleId/permissions", h.gate.RequireAll("roles.update", "permissions.assign"), h.SyncRolePermissions)
	roles.POST("/:roleId/permissions/:permissionId", h.gate.RequireAll("roles.update", "permissions.assign"), h.AssignRolePermission)
	roles.DELETE("/:roleId/permissions/:permissionId", h.gate.RequireAll("roles.update", "permissions.assign"), h.RemoveRolePermission)

	perms := authed.Group("/permissions")
	perms.GET("", h.gate.RequireOne("permissions.view"), h.ListPermissions)
	perms.POST("", h.gate.RequireOne("permissions.create"), h.CreatePermission)
	perms.PATCH("/:permissionId", h.gate.RequireOne("permissions.update"), h.UpdatePermission)
	perms.DELETE("/:permissionId", h.gate.RequireOne("permissions.delete"), h.DeletePermission)
}
