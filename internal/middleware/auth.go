package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"

	contextAdminID = "admin_id"
	contextRole    = "role"
	contextEmail   = "email"
)

// Claims is the bearer token payload issued by the staff login service.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject.
func IssueToken(secret, subject, role, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates signature, algorithm and expiry.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTAuth requires a valid bearer token and stores its claims in the context
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", "يجب تسجيل الدخول")
			return
		}

		claims, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", "رمز الدخول غير صالح أو منتهي")
			return
		}

		c.Set(contextAdminID, claims.Subject)
		c.Set(contextRole, claims.Role)
		c.Set(contextEmail, claims.Email)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(contextRole)
		if _, ok := allowed[role]; !ok {
			abortJSON(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission for this action", "ليس لديك صلاحية لهذا الإجراء")
			return
		}
		c.Next()
	}
}

// AdminRequired gates staff routes: valid token with role admin or manager
func AdminRequired(secret string) []gin.HandlerFunc {
	return []gin.HandlerFunc{JWTAuth(secret), RequireRole(RoleAdmin, RoleManager)}
}

// AdminID returns the authenticated staff member's id
func AdminID(c *gin.Context) string {
	return c.GetString(contextAdminID)
}

func abortJSON(c *gin.Context, status int, code, message, messageAr string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     http.StatusText(status),
		"code":      code,
		"message":   message,
		"messageAr": messageAr,
	})
}
