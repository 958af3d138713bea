package models

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin grants access to the content management routes.
const RoleAdmin = "admin"

// Claims is the payload of admin bearer tokens.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
