package handler

import (
	"net/http"

	"tenco_blog/internal/dto"
	"tenco_blog/internal/middleware"
	"tenco_blog/internal/service"
	"tenco_blog/internal/view"
	"tenco_blog/pkg/logger"

	"github.com/gin-gonic/gin"
)

type BoardHandler interface {
	List(c *gin.Context)
	Detail(c *gin.Context)
	SaveForm(c *gin.Context)
	Save(c *gin.Context)
	UpdateForm(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type boardHandler struct {
	BoardService service.BoardService
}

func NewBoardHandler(boardService service.BoardService) BoardHandler {
	return &boardHandler{BoardService: boardService}
}

// 首页：全部帖子，id倒序
func (h *boardHandler) List(c *gin.Context) {
	boards, err := h.BoardService.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	user, _ := middleware.CurrentUser(c)
	render(c, http.StatusOK, view.Index, gin.H{
		"boardList": dto.ToBoardResponses(boards, user),
	})
}

func (h *boardHandler) Detail(c *gin.Context) {
	boardID, ok := parseID(c)
	if !ok {
		return
	}
	board, err := h.BoardService.Detail(c.Request.Context(), boardID)
	if err != nil {
		logger.Log.WithError(err).WithField("board_id", boardID).Warn("查找帖子失败")
		handleServiceError(c, err)
		return
	}
	user, _ := middleware.CurrentUser(c)
	render(c, http.StatusOK, view.BoardDetail, gin.H{
		"board": dto.ToBoardResponse(board, user),
	})
}

func (h *boardHandler) SaveForm(c *gin.Context) {
	render(c, http.StatusOK, view.BoardSaveForm, gin.H{"form": dto.BoardSaveForm{}})
}

// 发帖：1、绑定表单 2、登录了就用会话里的用户名当作者 3、保存后重定向到首页（PRG）
func (h *boardHandler) Save(c *gin.Context) {
	var form dto.BoardSaveForm
	if err := c.ShouldBind(&form); err != nil {
		logger.Log.WithError(err).Warn("发帖参数解析失败")
		render(c, http.StatusBadRequest, view.BoardSaveForm, gin.H{"form": form, "errorMessage": msgBadForm})
		return
	}
	if user, ok := middleware.CurrentUser(c); ok {
		form.Username = user.Username
	}

	logCtx := logger.Log.WithField("username", form.Username)
	board, err := h.BoardService.Save(c.Request.Context(), form.Title, form.Content, form.Username)
	if err != nil {
		msg, known := formMessage(err, service.ErrInvalidInput)
		code := http.StatusBadRequest
		if !known {
			logCtx.WithError(err).Error("发帖失败")
			code = http.StatusInternalServerError
		}
		render(c, code, view.BoardSaveForm, gin.H{"form": form, "errorMessage": msg})
		return
	}

	logCtx.WithField("board_id", board.ID).Info("发帖成功")
	c.Redirect(http.StatusFound, "/")
}

func (h *boardHandler) UpdateForm(c *gin.Context) {
	boardID, ok := parseID(c)
	if !ok {
		return
	}
	board, err := h.BoardService.Find(c.Request.Context(), boardID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	user, _ := middleware.CurrentUser(c)
	render(c, http.StatusOK, view.BoardUpdate, gin.H{
		"board": dto.ToBoardResponse(board, user),
	})
}

// 改帖：只改标题和内容，成功后回首页
func (h *boardHandler) Update(c *gin.Context) {
	boardID, ok := parseID(c)
	if !ok {
		return
	}
	var form dto.BoardUpdateForm
	bindErr := c.ShouldBind(&form)
	// 表单有问题时把用户刚填的内容原样放回去
	rerender := func(code int, msg string) {
		render(c, code, view.BoardUpdate, gin.H{
			"board":        dto.BoardResponse{ID: boardID, Title: form.Title, Content: form.Content},
			"errorMessage": msg,
		})
	}
	if bindErr != nil {
		logger.Log.WithError(bindErr).Warn("改帖参数解析失败")
		rerender(http.StatusBadRequest, msgBadForm)
		return
	}

	logCtx := logger.Log.WithField("board_id", boardID)
	if _, err := h.BoardService.Update(c.Request.Context(), boardID, form.Title, form.Content); err != nil {
		if msg, known := formMessage(err, service.ErrInvalidInput); known {
			rerender(http.StatusBadRequest, msg)
			return
		}
		logCtx.WithError(err).Warn("改帖失败")
		handleServiceError(c, err)
		return
	}

	logCtx.Info("改帖成功")
	c.Redirect(http.StatusFound, "/")
}

// 删帖：没有作者校验
func (h *boardHandler) Delete(c *gin.Context) {
	boardID, ok := parseID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("board_id", boardID)
	if err := h.BoardService.Delete(c.Request.Context(), boardID); err != nil {
		logCtx.WithError(err).Warn("删帖失败")
		handleServiceError(c, err)
		return
	}
	logCtx.Info("删帖成功")
	c.Redirect(http.StatusFound, "/")
}
