package middleware

import (
	"errors"
	"net/http"
	"strings"

	"authservice/internal/pkg/jwt"
	"authservice/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const requestContextKey = "auth.request_context"

// RequestContext is the caller identity taken from a verified access token.
type RequestContext struct {
	UserID      string
	Username    string
	Roles       []string
	Permissions []string
	TokenID     string
}

func (rc *RequestContext) HasRole(role string) bool {
	return contains(rc.Roles, role)
}

func (rc *RequestContext) HasPermission(perm string) bool {
	return contains(rc.Permissions, perm)
}

type AccessTokenDecoder interface {
	DecodeAccessToken(token string) (*jwt.Claims, error)
}

// JWTAuth verifies the bearer access token and stores a RequestContext.
// No storage is consulted: an access token is valid until it expires.
func JWTAuth(tokens AccessTokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := tokens.DecodeAccessToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.CustomError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired")
				return
			}
			response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token")
			return
		}

		rc := &RequestContext{
			UserID:      claims.Subject,
			Username:    claims.Username,
			Roles:       claims.Roles,
			Permissions: claims.Permissions,
			TokenID:     claims.ID,
		}
		c.Set(requestContextKey, rc)
		c.Set("user_id", rc.UserID)

		c.Next()
	}
}

// CurrentUser returns the identity stored by JWTAuth.
func CurrentUser(c *gin.Context) (*RequestContext, bool) {
	v, ok := c.Get(requestContextKey)
	if !ok {
		return nil, false
	}
	rc, ok := v.(*RequestContext)
	return rc, ok
}

// MustCurrentUser is CurrentUser for handlers mounted behind JWTAuth.
func MustCurrentUser(c *gin.Context) *RequestContext {
	rc, ok := CurrentUser(c)
	if !ok {
		panic("middleware: no request context; route is missing JWTAuth")
	}
	return rc
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
