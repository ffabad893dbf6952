package middleware

import (
	"net/http"

	"authservice/internal/domain"
	"authservice/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole passes when the caller holds at least one of roles.
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return requireClaims(func(rc *RequestContext) bool {
		for _, r := range roles {
			if rc.HasRole(r) {
				return true
			}
		}
		return false
	}, "Insufficient roles")
}

// RequireAllRoles passes when the caller holds every one of roles.
func RequireAllRoles(roles ...string) gin.HandlerFunc {
	return requireClaims(func(rc *RequestContext) bool {
		for _, r := range roles {
			if !rc.HasRole(r) {
				return false
			}
		}
		return true
	}, "Insufficient roles")
}

func RequireAnyPermission(perms ...string) gin.HandlerFunc {
	return requireClaims(func(rc *RequestContext) bool {
		for _, p := range perms {
			if rc.HasPermission(p) {
				return true
			}
		}
		return false
	}, "Insufficient permissions")
}

func RequireAllPermissions(perms ...string) gin.HandlerFunc {
	return requireClaims(func(rc *RequestContext) bool {
		for _, p := range perms {
			if !rc.HasPermission(p) {
				return false
			}
		}
		return true
	}, "Insufficient permissions")
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireAnyRole(domain.RoleAdmin)
}

func requireClaims(allowed func(*RequestContext) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, ok := CurrentUser(c)
		if !ok {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !allowed(rc) {
			response.CustomError(c, http.StatusForbidden, "FORBIDDEN", message)
			return
		}
		c.Next()
	}
}
