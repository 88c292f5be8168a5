package authz

import "strings"

// AdminRoleName is the reserved platform administrator role.
const AdminRoleName = "Administrator"

// Scope classifies a caller's visibility from the shape of their permission
// set. There is no stored global/area flag on roles; a role holding any
// permission outside the area_mgmt family counts as globally scoped, even if
// it also holds area_mgmt codes.
type Scope struct {
	RoleName      string
	AreaID        *string
	HasAreaScoped bool
	HasGlobal     bool
	IsAdmin       bool

	// ShouldFilterByArea is true only for non-admin callers whose entire
	// permission set is area-scoped and who belong to an area.
	ShouldFilterByArea bool
}

// Resolve computes the caller's scope. It is total: any role name, area and
// code set produce a classification.
func Resolve(roleName string, areaID *string, codes Set) Scope {
	s := Scope{RoleName: roleName, AreaID: areaID}
	for c := range codes {
		if c.AreaScoped() {
			s.HasAreaScoped = true
		} else {
			s.HasGlobal = true
		}
	}
	s.IsAdmin = strings.EqualFold(roleName, AdminRoleName) || s.HasGlobal
	s.ShouldFilterByArea = !s.IsAdmin && s.HasAreaScoped && areaID != nil
	return s
}

// CanAccessArea decides whether the caller may touch records in targetAreaID
// for the given resource category. Admins pass unconditionally. Area-scoped
// callers are confined to their own area. Everyone else needs a
// "<resource>...all" code to cross areas.
func (s Scope) CanAccessArea(targetAreaID string, resource Category, codes Set) bool {
	if s.IsAdmin {
		return true
	}
	if s.HasAreaScoped {
		return s.AreaID != nil && *s.AreaID == targetAreaID
	}
	for c := range codes {
		if c.Category() == resource && c.GrantsAll() {
			return true
		}
	}
	return s.AreaID != nil && *s.AreaID == targetAreaID
}

// Filter is the only output downstream listing controllers consume.
type Filter struct {
	AreaID string
}

// QueryFilter returns the area filter to apply to list queries, or nil for
// unrestricted visibility.
func (s Scope) QueryFilter() *Filter {
	if !s.ShouldFilterByArea {
		return nil
	}
	return &Filter{AreaID: *s.AreaID}
}
