package handler

import (
	"errors"
	"net/http"
	"strconv"

	"tenco_blog/internal/dto"
	"tenco_blog/internal/middleware"
	"tenco_blog/internal/service"
	"tenco_blog/internal/view"
	"tenco_blog/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	msgBadForm  = "参数错误: 请检查输入"
	msgInternal = "服务器开小差了，请稍后再试"
)

// render 渲染视图，顺便把当前登录用户塞进去给导航栏用
func render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	user, _ := middleware.CurrentUser(c)
	data["sessionUser"] = dto.ToUserInfo(user)
	c.HTML(code, name, data)
}

// sendErrorPage 渲染错误页并中断后续处理
func sendErrorPage(c *gin.Context, code int, message string) {
	render(c, code, view.Error, gin.H{
		"status":       code,
		"errorMessage": message,
	})
	c.Abort()
}

// handleServiceError 把service层错误映射成状态码，未知错误只在日志里留细节
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBoardNotFound):
		sendErrorPage(c, http.StatusNotFound, "找不到这篇帖子")
	case errors.Is(err, service.ErrUserNotFound):
		sendErrorPage(c, http.StatusNotFound, "用户不存在")
	case errors.Is(err, service.ErrInvalidInput):
		sendErrorPage(c, http.StatusBadRequest, err.Error())
	default:
		logger.Log.WithError(err).WithField("path", c.Request.URL.Path).Error("未处理的服务器内部错误")
		sendErrorPage(c, http.StatusInternalServerError, msgInternal)
	}
}

// parseID 解析路径里的 :id
func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		sendErrorPage(c, http.StatusBadRequest, "无效的帖子ID")
		return 0, false
	}
	return id, true
}

// formMessage 决定表单重新渲染时显示什么；第二个返回值表示是不是用户能看懂的错误
func formMessage(err error, known ...error) (string, bool) {
	for _, k := range known {
		if errors.Is(err, k) {
			return err.Error(), true
		}
	}
	return msgInternal, false
}
