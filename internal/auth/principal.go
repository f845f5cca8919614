package auth

import (
	"fmt"
	"net/http"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextEmail    = "email"
	ContextName     = "name"
	ContextRoles    = "roles"
	ContextRole     = "role"
)

// Principal 当前请求的用户
type Principal struct {
	UserID   string
	Username string
	Email    string
	Name     string
	Roles    []string
	Role     schedule.Role // 权限最高的排产角色
}

// PrincipalFromClaims 从 token 声明解析用户
func PrincipalFromClaims(claims *KeycloakClaims) (Principal, error) {
	role, ok := schedule.HighestRole(claims.RealmAccess.Roles)
	if !ok {
		return Principal{}, fmt.Errorf("%w: %v", schedule.ErrUnknownRole, claims.RealmAccess.Roles)
	}
	return Principal{
		UserID:   claims.Sub,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		Name:     claims.Name,
		Roles:    claims.RealmAccess.Roles,
		Role:     role,
	}, nil
}

func setPrincipal(c *gin.Context, p Principal) {
	c.Set(ContextUserID, p.UserID)
	c.Set(ContextUsername, p.Username)
	c.Set(ContextEmail, p.Email)
	c.Set(ContextName, p.Name)
	c.Set(ContextRoles, p.Roles)
	c.Set(ContextRole, p.Role)
}

// CurrentPrincipal 读取当前用户,未认证时返回 false
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return Principal{}, false
	}
	role, _ := c.Get(ContextRole)
	r, _ := role.(schedule.Role)
	return Principal{
		UserID:   userID,
		Username: c.GetString(ContextUsername),
		Email:    c.GetString(ContextEmail),
		Name:     c.GetString(ContextName),
		Roles:    c.GetStringSlice(ContextRoles),
		Role:     r,
	}, true
}

// DevAuthMiddleware 未启用 Keycloak 时使用的认证中间件
// 可通过 X-User-ID 和 X-User-Role 请求头模拟用户
func DevAuthMiddleware(defaultUser string, defaultRole schedule.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal{UserID: defaultUser, Username: defaultUser, Role: defaultRole}
		if id := c.GetHeader("X-User-ID"); id != "" {
			p.UserID = id
			p.Username = id
		}
		if raw := c.GetHeader("X-User-Role"); raw != "" {
			role, err := schedule.ParseRole(raw)
			if err != nil {
				c.JSON(http.StatusForbidden, gin.H{
					"code":    403,
					"message": "no scheduling role",
					"detail":  err.Error(),
				})
				c.Abort()
				return
			}
			p.Role = role
		}
		p.Roles = []string{string(p.Role)}
		setPrincipal(c, p)
		c.Next()
	}
}

// RequireDispatch 只允许可调整排产的角色访问
func RequireDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok || !p.Role.CanDispatch() {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "insufficient role",
				"detail":  "dispatching requires admin, manager or supervisor",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
