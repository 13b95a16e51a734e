package router

import (
	"fmt"
	"html/template"
	"net/http"

	"tenco_blog/internal/handler"
	"tenco_blog/internal/middleware"
	"tenco_blog/internal/observability"
	"tenco_blog/internal/service"
	"tenco_blog/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 是组装路由需要的全部东西
type Deps struct {
	Templates    *template.Template
	BoardHandler handler.BoardHandler
	UserHandler  handler.UserHandler
	UserService  service.UserService
	Sessions     session.Store
	Cookie       session.Cookie
	Redis        *redis.Client
	LoginLimit   middleware.RateLimiterConfig
	Metrics      *observability.Metrics
	Gatherer     prometheus.Gatherer

	// 只有这些代理发来的 X-Forwarded-For 才算数，登录限流按 ClientIP 计数
	TrustedProxies []string
}

func SetupRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	var proxies []string
	if len(d.TrustedProxies) > 0 {
		proxies = d.TrustedProxies
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.PrometheusMiddleware(d.Metrics))
	r.SetHTMLTemplate(d.Templates)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	site := r.Group("/")
	site.Use(middleware.LoadSession(d.Sessions, d.UserService, d.Cookie))
	{
		site.GET("/", d.BoardHandler.List)
		site.GET("/index", d.BoardHandler.List)

		site.GET("/board/save-form", d.BoardHandler.SaveForm)
		site.POST("/board/save", d.BoardHandler.Save)
		site.GET("/board/:id", d.BoardHandler.Detail)
		site.GET("/board/:id/update-form", d.BoardHandler.UpdateForm)
		site.POST("/board/:id/update-form", d.BoardHandler.Update)
		site.POST("/board/:id/delete", d.BoardHandler.Delete)

		site.GET("/join-form", d.UserHandler.JoinForm)
		site.POST("/join", d.UserHandler.Join)
		site.GET("/login-form", d.UserHandler.LoginForm)
		site.POST("/login", middleware.LoginRateLimiter(d.Redis, d.LoginLimit, d.Metrics, d.UserHandler.TooManyLogins), d.UserHandler.Login)
		site.GET("/logout", d.UserHandler.Logout)

		authorized := site.Group("/user")
		authorized.Use(middleware.RequireLogin())
		{
			authorized.GET("/update-form", d.UserHandler.UpdateForm)
			authorized.POST("/update", d.UserHandler.Update)
		}
	}

	return r, nil
}
