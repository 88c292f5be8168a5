package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"doctrack/api/internal/models"
	"doctrack/api/internal/service"
)

type roleResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	AreaID               *string `json:"areaId,omitempty"`
	IsSystem             bool    `json:"isSystem"`
	CanAssignPermissions bool    `json:"canAssignPermissions"`
	IsActive             bool    `json:"isActive"`
}

func toRoleResponse(r models.Role) roleResponse {
	return roleResponse{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		AreaID:               r.AreaID,
		IsSystem:             r.IsSystem,
		CanAssignPermissions: r.CanAssignPermissions,
		IsActive:             r.IsActive,
	}
}

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.roleService.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		resp = append(resp, toRoleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"roles": resp})
}

type createRoleRequest struct {
	Name                 string  `json:"name" binding:"required"`
	Description          string  `json:"description"`
	AreaID               *string `json:"areaId"`
	CanAssignPermissions bool    `json:"canAssignPermissions"`
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), service.CreateRoleInput{
		Name:                 req.Name,
		Description:          req.Description,
		AreaID:               req.AreaID,
		CanAssignPermissions: req.CanAssignPermissions,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role": toRoleResponse(role)})
}

type updateRoleRequest struct {
	Name                 *string `json:"name"`
	Description          *string `json:"description"`
	AreaID               *string `json:"areaId"`
	CanAssignPermissions *bool   `json:"canAssignPermissions"`
	IsActive             *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.roleService.Update(c.Request.Context(), c.Param("roleId"), service.UpdateRoleInput{
		Name:                 req.Name,
		Description:          req.Description,
		AreaID:               req.AreaID,
		CanAssignPermissions: req.CanAssignPermissions,
		IsActive:             req.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": toRoleResponse(role)})
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	if err := h.roleService.Delete(c.Request.Context(), c.Param("roleId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListRolePermissions(c *gin.Context) {
	perms, err := h.roleService.EffectivePermissions(c.Request.Context(), c.Param("roleId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		resp = append(resp, toPermissionResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"permissions": resp})
}

type syncPermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds"`
}

func (h HandlerSet) SyncRolePermissions(c *gin.Context) {
	var req syncPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var assignedBy *string
	if user, ok := userFrom(c); ok {
		assignedBy = &user.ID
	}

	if err := h.roleService.SyncPermissions(c.Request.Context(), c.Param("roleId"), req.PermissionIDs, assignedBy); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AssignRolePermission(c *gin.Context) {
	var assignedBy *string
	if user, ok := userFrom(c); ok {
		assignedBy = &user.ID
	}

	result, err := h.roleService.AssignPermission(c.Request.Context(), c.Param("roleId"), c.Param("permissionId"), assignedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": string(result)})
}

func (h HandlerSet) RemoveRolePermission(c *gin.Context) {
	result, err := h.roleService.RemovePermission(c.Request.Context(), c.Param("roleId"), c.Param("permissionId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": string(result)})
}
