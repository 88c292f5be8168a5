package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"doctrack/api/internal/middleware"
)

// ListUsers is the listing collaborator pattern: the gate resolved the
// caller's scope, and the query filter it computed is the only visibility
// input this handler applies.
func (h HandlerSet) ListUsers(c *gin.Context) {
	limit := 50
	offset := 0
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	scope, ok := middleware.ScopeFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var areaID *string
	if filter := scope.QueryFilter(); filter != nil {
		areaID = &filter.AreaID
	}

	users, err := h.users.List(c.Request.Context(), areaID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}
