package middleware

import (
	"errors"
	"net/http"

	"tenco_blog/internal/model"
	"tenco_blog/internal/service"
	"tenco_blog/internal/session"
	"tenco_blog/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	ContextSessionUser  = "sessionUser"
	ContextSessionToken = "sessionToken"
)

// LoadSession 每个请求都执行：1、读cookie 2、Redis里换出用户ID 3、按ID查最新的用户放进context
// 没登录或者会话失效都照常放行，要不要登录由 RequireLogin 决定
func LoadSession(store session.Store, users service.UserService, cookie session.Cookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cookie.Read(c)
		if token == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		userID, err := store.Resolve(ctx, token)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrInvalidToken) {
				cookie.Clear(c)
			} else {
				logger.Log.WithError(err).Error("读取会话失败")
			}
			c.Next()
			return
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			logCtx := logger.Log.WithField("user_id", userID)
			if errors.Is(err, service.ErrUserNotFound) {
				logCtx.Warn("会话对应的用户不存在，销毁会话")
				_ = store.Destroy(ctx, token)
				cookie.Clear(c)
			} else {
				logCtx.WithError(err).Error("加载会话用户失败")
			}
			c.Next()
			return
		}

		c.Set(ContextSessionUser, user)
		c.Set(ContextSessionToken, token)
		c.Next()
	}
}

// RequireLogin 没有会话就重定向到登录页
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, "/login-form")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 取出 LoadSession 放进去的用户
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextSessionUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(ContextSessionToken)
}
