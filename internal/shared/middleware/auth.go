package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// TenantIDKey is the context key for tenant ID.
	TenantIDKey = "tenant_id"
)

// TenantClaims are the JWT claims carried by tenant API tokens.
type TenantClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*TenantClaims, error)
}

// JWTValidator validates HMAC-signed tenant tokens.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator for tokens signed with the given secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

// ValidateToken parses and validates a tenant token.
func (v *JWTValidator) ValidateToken(token string) (*TenantClaims, error) {
	claims := &TenantClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, errors.New("token missing tenant_id claim")
	}
	return claims, nil
}

var _ TokenValidator = (*JWTValidator)(nil)

// Auth returns a middleware that validates bearer tokens.
// On success it sets tenant_id in the request context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "INVALID_TOKEN",
			})
			return
		}

		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "INVALID_TOKEN",
			})
			return
		}

		c.Set(TenantIDKey, tenantID)

		c.Next()
	}
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, BearerPrefix) {
		return strings.TrimPrefix(authHeader, BearerPrefix)
	}

	return ""
}

// GetTenantID returns the tenant ID from context.
// Returns uuid.Nil if not found.
func GetTenantID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get(TenantIDKey); exists {
		if tenantID, ok := val.(uuid.UUID); ok {
			return tenantID
		}
	}
	return uuid.Nil
}
