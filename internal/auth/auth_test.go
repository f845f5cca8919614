package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/auth"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKid = "test-key"

// jwksServer 提供单个 RSA 公钥的 JWKS 端点
func jwksServer(t *testing.T, key *rsa.PublicKey) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": testKid,
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, issuer string, roles []string, exp time.Time) string {
	t.Helper()
	claims := &auth.KeycloakClaims{
		Sub:               "u-1",
		PreferredUsername: "alice",
		Email:             "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	claims.RealmAccess.Roles = roles
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func newValidator(t *testing.T) (*auth.KeycloakTokenValidator, *rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, &key.PublicKey)
	issuer := "https://sso.example.com/realms/factory"
	return auth.NewKeycloakTokenValidator(issuer, srv.URL), key, issuer
}

// TestValidateToken 测试 token 校验
func TestValidateToken(t *testing.T) {
	v, key, issuer := newValidator(t)

	t.Run("valid", func(t *testing.T) {
		claims, err := v.ValidateToken(signToken(t, key, issuer, []string{"operator"}, time.Now().Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Sub)
		assert.Equal(t, []string{"operator"}, claims.RealmAccess.Roles)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.ValidateToken(signToken(t, key, issuer, nil, time.Now().Add(-time.Minute)))
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := v.ValidateToken(signToken(t, key, "https://evil.example.com", nil, time.Now().Add(time.Hour)))
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.ValidateToken(signToken(t, other, issuer, nil, time.Now().Add(time.Hour)))
		assert.Error(t, err)
	})
}

// TestPrincipalFromClaims 测试多角色取最高权限
func TestPrincipalFromClaims(t *testing.T) {
	claims := &auth.KeycloakClaims{Sub: "u-2"}
	claims.RealmAccess.Roles = []string{"offline_access", "Operator", "supervisor"}
	p, err := auth.PrincipalFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, schedule.RoleSupervisor, p.Role)

	claims.RealmAccess.Roles = []string{"offline_access"}
	_, err = auth.PrincipalFromClaims(claims)
	assert.ErrorIs(t, err, schedule.ErrUnknownRole)
}

func whoami(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "role": p.Role})
}

// TestKeycloakAuthMiddleware 测试认证中间件
func TestKeycloakAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v, key, issuer := newValidator(t)

	router := gin.New()
	router.Use(auth.KeycloakAuthMiddleware(v))
	router.GET("/me", whoami)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"no scheduling role", "Bearer " + signToken(t, key, issuer, []string{"viewer"}, time.Now().Add(time.Hour)), http.StatusForbidden},
		{"manager", "Bearer " + signToken(t, key, issuer, []string{"manager"}, time.Now().Add(time.Hour)), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

// TestDevAuthMiddleware 测试开发模式认证与角色限制
func TestDevAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(auth.DevAuthMiddleware("system", schedule.RoleAdmin))
	router.GET("/me", whoami)
	router.POST("/dispatch", auth.RequireDispatch(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"system","role":"admin"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/dispatch", nil)
	req.Header.Set("X-User-ID", "w-7")
	req.Header.Set("X-User-Role", "operator")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/dispatch", nil)
	req.Header.Set("X-User-Role", "Supervisor")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-Role", "janitor")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
