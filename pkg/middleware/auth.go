package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxUserIDKey = "user_id"

// AuthClaims 登录态 JWT 声明，由外部认证服务签发
type AuthClaims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// Auth Bearer JWT 认证中间件。只负责校验与注入 user_id，
// 注册/登录/密码存储都在外部认证层
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		tokenString := strings.TrimSpace(header[len("bearer "):])

		claims := &AuthClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Next()
	}
}

// CurrentUserID 取出当前登录用户 id
func CurrentUserID(c *gin.Context) (uint, error) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return 0, errors.New("no authenticated user in context")
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, errors.New("invalid user id in context")
	}
	return id, nil
}
