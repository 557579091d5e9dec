package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/staff", append(AdminRequired(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"adminId": AdminID(c)})
	})...)
	return router
}

func request(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/staff", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminRequired(t *testing.T) {
	router := newAuthRouter()

	t.Run("valid admin token", func(t *testing.T) {
		token, err := IssueToken(testSecret, "admin-1", RoleAdmin, "admin@fablab.test", time.Hour)
		require.NoError(t, err)

		w := request(router, token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"adminId":"admin-1"}`, w.Body.String())
	})

	t.Run("manager is allowed", func(t *testing.T) {
		token, err := IssueToken(testSecret, "mgr-1", RoleManager, "", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, request(router, token).Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := request(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "UNAUTHORIZED", body["code"])
		assert.NotEmpty(t, body["messageAr"])
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := IssueToken(testSecret, "admin-1", RoleAdmin, "", -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, request(router, token).Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueToken("other-secret", "admin-1", RoleAdmin, "", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, request(router, token).Code)
	})

	t.Run("other role is forbidden", func(t *testing.T) {
		token, err := IssueToken(testSecret, "emp-1", "employee", "", time.Hour)
		require.NoError(t, err)

		w := request(router, token)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FORBIDDEN")
	})
}

func TestParseToken(t *testing.T) {
	t.Run("empty secret is refused", func(t *testing.T) {
		token, err := IssueToken(testSecret, "admin-1", RoleAdmin, "", time.Hour)
		require.NoError(t, err)
		_, err = ParseToken("", token)
		assert.Error(t, err)
	})

	t.Run("subject is required", func(t *testing.T) {
		token, err := IssueToken(testSecret, "", RoleAdmin, "", time.Hour)
		require.NoError(t, err)
		_, err = ParseToken(testSecret, token)
		assert.Error(t, err)
	})

	t.Run("none algorithm is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Role:             RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ParseToken(testSecret, signed)
		assert.Error(t, err)
	})

	t.Run("claims round trip", func(t *testing.T) {
		token, err := IssueToken(testSecret, "admin-1", RoleAdmin, "admin@fablab.test", time.Hour)
		require.NoError(t, err)
		claims, err := ParseToken(testSecret, token)
		require.NoError(t, err)
		assert.Equal(t, "admin-1", claims.Subject)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, "admin@fablab.test", claims.Email)
	})
}
