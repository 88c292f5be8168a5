// Package authz holds the pure authorization pieces: permission code
// parsing, the closed category list, and area-scope resolution. Nothing in
// this package touches storage.
package authz

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is the closed list of permission categories. A code's first
// segment must equal its category.
type Category string

const (
	CategoryUsers       Category = "users"
	CategoryRoles       Category = "roles"
	CategoryPermissions Category = "permissions"
	CategoryDocuments   Category = "documents"
	CategoryCategories  Category = "categories"
	CategoryReports     Category = "reports"
	CategoryAreas       Category = "areas"
	CategoryAreaMgmt    Category = "area_mgmt"
	CategoryAudit       Category = "audit"
)

var categories = map[Category]struct{}{
	CategoryUsers:       {},
	CategoryRoles:       {},
	CategoryPermissions: {},
	CategoryDocuments:   {},
	CategoryCategories:  {},
	CategoryReports:     {},
	CategoryAreas:       {},
	CategoryAreaMgmt:    {},
	CategoryAudit:       {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Categories returns the closed category list in a stable order.
func Categories() []Category {
	return []Category{
		CategoryUsers, CategoryRoles, CategoryPermissions,
		CategoryDocuments, CategoryCategories, CategoryReports,
		CategoryAreas, CategoryAreaMgmt, CategoryAudit,
	}
}

var codePattern = regexp.MustCompile(`^[a-z_]+(\.[a-z_]+)+$`)

// Code is a validated permission code of the form category.action[.qualifier].
type Code string

const areaScopedPrefix = string(CategoryAreaMgmt) + "."

// ParseCode validates shape and category membership. Codes that pass are
// either system codes seeded at bootstrap or custom ones created at runtime;
// both share the same grammar.
func ParseCode(s string) (Code, error) {
	if !codePattern.MatchString(s) {
		return "", fmt.Errorf("permission code %q must match category.action in lower snake case", s)
	}
	cat, _, _ := strings.Cut(s, ".")
	if !Category(cat).Valid() {
		return "", fmt.Errorf("unknown permission category %q", cat)
	}
	return Code(s), nil
}

func (c Code) Category() Category {
	cat, _, _ := strings.Cut(string(c), ".")
	return Category(cat)
}

// AreaScoped reports whether the code belongs to the area-management family,
// which restricts visibility to the holder's own area.
func (c Code) AreaScoped() bool {
	return strings.HasPrefix(string(c), areaScopedPrefix)
}

// GrantsAll reports whether the code ends in the cross-area ".all" qualifier.
func (c Code) GrantsAll() bool {
	return strings.HasSuffix(string(c), ".all")
}

// Set is a permission code set with membership helpers used by the gate and
// the scope resolver.
type Set map[Code]struct{}

func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, c := range codes {
		s[Code(c)] = struct{}{}
	}
	return s
}

func (s Set) Has(c Code) bool {
	_, ok := s[c]
	return ok
}

// Missing returns the subset of codes not present, preserving input order.
func (s Set) Missing(codes []Code) []Code {
	var missing []Code
	for _, c := range codes {
		if !s.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func (s Set) HasAny(codes []Code) bool {
	for _, c := range codes {
		if s.Has(c) {
			return true
		}
	}
	return false
}
