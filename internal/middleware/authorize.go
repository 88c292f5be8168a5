package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/authz"
	"doctrack/api/internal/models"
	"doctrack/api/internal/service"
)

// Context keys set by the gate on success.
const (
	CtxRole  = "authz_role"
	CtxCodes = "authz_codes"
	CtxScope = "authz_scope"
)

// Gate builds the request-scoped permission guards. A request passes through
// at most one effective-permission lookup; the resolved role, code set and
// area scope are cached on the context for handlers and downstream filters.
type Gate struct {
	roles *service.RoleService
	log   zerolog.Logger
}

func NewGate(roles *service.RoleService, log zerolog.Logger) *Gate {
	return &Gate{roles: roles, log: log}
}

// RequireAll passes only if the caller holds every code.
func (g *Gate) RequireAll(codes ...authz.Code) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, held, ok := g.resolve(c)
		if !ok {
			return
		}
		if missing := held.Missing(codes); len(missing) > 0 {
			g.deny(c, &autherr.AuthorizationError{
				Role:      role.Name,
				Attempted: codeStrings(codes),
				Missing:   codeStrings(missing),
			})
			return
		}
		g.admit(c, role, held)
	}
}

// RequireAny passes if the caller holds at least one code.
func (g *Gate) RequireAny(codes ...authz.Code) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, held, ok := g.resolve(c)
		if !ok {
			return
		}
		if !held.HasAny(codes) {
			g.deny(c, &autherr.AuthorizationError{
				Role:      role.Name,
				Attempted: codeStrings(codes),
			})
			return
		}
		g.admit(c, role, held)
	}
}

// RequireOne is RequireAll for a single code.
func (g *Gate) RequireOne(code authz.Code) gin.HandlerFunc {
	return g.RequireAll(code)
}

func (g *Gate) resolve(c *gin.Context) (models.Role, authz.Set, bool) {
	userVal, exists := c.Get(CtxUser)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": autherr.ErrAuthenticationRequired.Error()})
		return models.Role{}, nil, false
	}
	user, ok := userVal.(models.User)
	if !ok || user.RoleID == nil || user.Role == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": autherr.ErrAuthenticationRequired.Error()})
		return models.Role{}, nil, false
	}
	role := *user.Role

	// Role state is checked before any permission is evaluated.
	if !role.IsActive {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": autherr.ErrRoleDisabled.Error()})
		return models.Role{}, nil, false
	}

	if cached, exists := c.Get(CtxCodes); exists {
		if held, ok := cached.(authz.Set); ok {
			return role, held, true
		}
	}

	perms, err := g.roles.EffectivePermissions(c.Request.Context(), role.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "permission_lookup_failed"})
		return models.Role{}, nil, false
	}
	held := make(authz.Set, len(perms))
	for _, p := range perms {
		held[authz.Code(p.Code)] = struct{}{}
	}
	return role, held, true
}

func (g *Gate) admit(c *gin.Context, role models.Role, held authz.Set) {
	user, _ := c.Get(CtxUser)
	var areaID *string
	if u, ok := user.(models.User); ok {
		areaID = u.AreaID
	}

	c.Set(CtxRole, role)
	c.Set(CtxCodes, held)
	c.Set(CtxScope, authz.Resolve(role.Name, areaID, held))
	c.Next()
}

func (g *Gate) deny(c *gin.Context, err *autherr.AuthorizationError) {
	g.log.Warn().
		Str("role", err.Role).
		Strs("attempted", err.Attempted).
		Strs("missing", err.Missing).
		Str("path", c.Request.URL.Path).
		Msg("authorization denied")
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
}

func codeStrings(codes []authz.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

// ScopeFrom extracts the resolved area scope placed by the gate. The second
// return is false when no gate ran on the route.
func ScopeFrom(c *gin.Context) (authz.Scope, bool) {
	v, exists := c.Get(CtxScope)
	if !exists {
		return authz.Scope{}, false
	}
	scope, ok := v.(authz.Scope)
	return scope, ok
}
