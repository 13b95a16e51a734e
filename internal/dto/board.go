package dto

import (
	"time"

	"tenco_blog/internal/model"
)

// BoardSaveForm 对应 POST /board/save 的表单：title=值&content=值&username=值
type BoardSaveForm struct {
	Title    string `form:"title" binding:"required,max=100"`
	Content  string `form:"content" binding:"required"`
	Username string `form:"username" binding:"max=64"`
}

type BoardUpdateForm struct {
	Title   string `form:"title" binding:"required,max=100"`
	Content string `form:"content" binding:"required"`
}

// BoardResponse 是模板里用到的帖子形状
type BoardResponse struct {
	ID        uint64
	Title     string
	Content   string
	Username  string
	ViewCount uint64
	CreatedAt time.Time
	IsOwner   bool // 当前登录用户是不是作者，只影响按钮显示
}

func ToBoardResponse(board *model.Board, sessionUser *model.User) BoardResponse {
	resp := BoardResponse{
		ID:        board.ID,
		Title:     board.Title,
		Content:   board.Content,
		Username:  board.Username,
		ViewCount: board.ViewCount,
		CreatedAt: board.CreatedAt,
	}
	if sessionUser != nil && sessionUser.Username == board.Username {
		resp.IsOwner = true
	}
	return resp
}

func ToBoardResponses(boards []model.Board, sessionUser *model.User) []BoardResponse {
	response := make([]BoardResponse, 0, len(boards))
	for i := range boards {
		response = append(response, ToBoardResponse(&boards[i], sessionUser))
	}
	return response
}
