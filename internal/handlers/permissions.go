package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"doctrack/api/internal/models"
	"doctrack/api/internal/service"
)

type permissionResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsSystem    bool   `json:"isSystem"`
}

func toPermissionResponse(p models.Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		IsSystem:    p.IsSystem,
	}
}

func (h HandlerSet) ListPermissions(c *gin.Context) {
	perms, err := h.permService.List(c.Request.Context())
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

type createPermissionRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
}

func (h HandlerSet) CreatePermission(c *gin.Context) {
	var req createPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	perm, err := h.permService.Create(c.Request.Context(), service.CreatePermissionInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"permission": toPermissionResponse(perm)})
}

type updatePermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h HandlerSet) UpdatePermission(c *gin.Context) {
	var req updatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	perm, err := h.permService.Update(c.Request.Context(), c.Param("permissionId"), service.UpdatePermissionInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permission": toPermissionResponse(perm)})
}

func (h HandlerSet) DeletePermission(c *gin.Context) {
	if err := h.permService.Delete(c.Request.Context(), c.Param("permissionId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
