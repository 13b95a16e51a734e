package handler

import (
	"errors"
	"net/http"

	"tenco_blog/internal/dto"
	"tenco_blog/internal/middleware"
	"tenco_blog/internal/observability"
	"tenco_blog/internal/service"
	"tenco_blog/internal/session"
	"tenco_blog/internal/view"
	"tenco_blog/pkg/logger"

	"github.com/gin-gonic/gin"
)

type UserHandler interface {
	JoinForm(c *gin.Context)
	Join(c *gin.Context)
	LoginForm(c *gin.Context)
	Login(c *gin.Context)
	// TooManyLogins 是登录限流中间件的拒绝处理
	TooManyLogins(c *gin.Context)
	Logout(c *gin.Context)
	UpdateForm(c *gin.Context)
	Update(c *gin.Context)
}

type userHandler struct {
	UserService service.UserService
	Sessions    session.Store
	Cookie      session.Cookie
	Metrics     *observability.Metrics
}

func NewUserHandler(userService service.UserService, sessions session.Store, cookie session.Cookie, metrics *observability.Metrics) UserHandler {
	return &userHandler{
		UserService: userService,
		Sessions:    sessions,
		Cookie:      cookie,
		Metrics:     metrics,
	}
}

func (h *userHandler) JoinForm(c *gin.Context) {
	render(c, http.StatusOK, view.UserJoinForm, gin.H{"form": dto.JoinForm{}})
}

// 注册：1、绑定表单 2、service层校验+查重+哈希+入库 3、成功重定向到登录页（PRG），失败带错误信息重新渲染
func (h *userHandler) Join(c *gin.Context) {
	var form dto.JoinForm
	if err := c.ShouldBind(&form); err != nil {
		logger.Log.WithError(err).Warn("注册参数解析失败")
		form.Password = ""
		render(c, http.StatusBadRequest, view.UserJoinForm, gin.H{"form": form, "errorMessage": msgBadForm})
		return
	}

	logCtx := logger.Log.WithField("username", form.Username)
	logCtx.Info("开始处理用户注册请求")

	user, err := h.UserService.Join(c.Request.Context(), form.Username, form.Password, form.Email)
	if err != nil {
		form.Password = ""
		msg, known := formMessage(err, service.ErrInvalidInput, service.ErrUsernameTaken)
		code := http.StatusBadRequest
		if !known {
			logCtx.WithError(err).Error("用户注册失败")
			code = http.StatusInternalServerError
		} else {
			logCtx.WithError(err).Warn("用户注册被拒绝")
		}
		render(c, code, view.UserJoinForm, gin.H{"form": form, "errorMessage": msg})
		return
	}

	logCtx.WithField("user_id", user.ID).Info("用户注册成功")
	c.Redirect(http.StatusFound, "/login-form")
}

func (h *userHandler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, view.UserLoginForm, gin.H{"form": dto.LoginForm{}})
}

// 登录：1、校验账号密码 2、创建服务端会话并写cookie 3、回首页；失败不创建任何会话
func (h *userHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		logger.Log.WithError(err).Warn("登录参数解析失败")
		render(c, http.StatusBadRequest, view.UserLoginForm, gin.H{"form": dto.LoginForm{Username: form.Username}, "errorMessage": msgBadForm})
		return
	}
	ctx := c.Request.Context()
	logCtx := logger.Log.WithField("username", form.Username)
	logCtx.Info("开始处理用户登录请求")

	user, err := h.UserService.Login(ctx, form.Username, form.Password)
	if err != nil {
		code := http.StatusInternalServerError
		msg := msgInternal
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			// 模糊的错误提示，更安全
			code, msg = http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
			h.Metrics.LoginFailed("credentials")
			logCtx.Warn("用户名或密码错误")
		case errors.Is(err, service.ErrInvalidInput):
			code, msg = http.StatusBadRequest, err.Error()
		default:
			logCtx.WithError(err).Error("用户登录失败")
		}
		render(c, code, view.UserLoginForm, gin.H{"form": dto.LoginForm{Username: form.Username}, "errorMessage": msg})
		return
	}

	// 已经带着旧会话的话先销毁，防止会话固定
	if old := middleware.CurrentToken(c); old != "" {
		_ = h.Sessions.Destroy(ctx, old)
	}
	token, err := h.Sessions.Create(ctx, user.ID)
	if err != nil {
		logCtx.WithError(err).Error("创建会话失败")
		sendErrorPage(c, http.StatusInternalServerError, msgInternal)
		return
	}
	h.Cookie.Set(c, token)

	logCtx.WithField("user_id", user.ID).Info("用户登录成功")
	c.Redirect(http.StatusFound, "/")
}

func (h *userHandler) TooManyLogins(c *gin.Context) {
	render(c, http.StatusTooManyRequests, view.UserLoginForm, gin.H{
		"form":         dto.LoginForm{Username: c.PostForm("username")},
		"errorMessage": "登录尝试过于频繁，请稍后再试",
	})
}

// 登出：删掉Redis里的会话，清cookie
func (h *userHandler) Logout(c *gin.Context) {
	// 无效或过期的cookie在 LoadSession 里已经清掉了，这里只处理有效会话
	if token := middleware.CurrentToken(c); token != "" {
		if err := h.Sessions.Destroy(c.Request.Context(), token); err != nil {
			logger.Log.WithError(err).Error("销毁会话失败")
		}
	}
	h.Cookie.Clear(c)
	c.Redirect(http.StatusFound, "/")
}

// 以下两个都挂在 RequireLogin 后面
func (h *userHandler) UpdateForm(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login-form")
		return
	}
	render(c, http.StatusOK, view.UserUpdateForm, gin.H{"user": dto.ToUserInfo(user)})
}

func (h *userHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login-form")
		return
	}
	logCtx := logger.Log.WithField("user_id", user.ID)

	var form dto.UserUpdateForm
	if err := c.ShouldBind(&form); err != nil {
		logCtx.WithError(err).Warn("修改资料参数解析失败")
		render(c, http.StatusBadRequest, view.UserUpdateForm, gin.H{"user": dto.ToUserInfo(user), "errorMessage": msgBadForm})
		return
	}

	if _, err := h.UserService.Update(c.Request.Context(), user.ID, form.Password, form.Email); err != nil {
		msg, known := formMessage(err, service.ErrInvalidInput)
		code := http.StatusBadRequest
		if !known {
			logCtx.WithError(err).Error("修改资料失败")
			code = http.StatusInternalServerError
		}
		render(c, code, view.UserUpdateForm, gin.H{"user": dto.ToUserInfo(user), "errorMessage": msg})
		return
	}

	// 密码改了，其他地方登录的会话全部作废，当前这个保留
	if n, err := h.Sessions.DestroyOthers(c.Request.Context(), user.ID, middleware.CurrentToken(c)); err != nil {
		logCtx.WithError(err).Error("清理其他会话失败")
	} else if n > 0 {
		logCtx.WithField("destroyed", n).Info("已注销其他会话")
	}

	// 会话里只存用户ID，下一个请求自然会读到最新资料
	logCtx.Info("修改资料成功")
	c.Redirect(http.StatusFound, "/user/update-form")
}
