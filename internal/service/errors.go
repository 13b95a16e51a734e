package service

import (
	"errors"

	"tenco_blog/internal/repository"
)

var (
	// ErrInvalidInput 会被包上具体是哪个字段的说明，handler可以直接展示给用户
	ErrInvalidInput       = errors.New("参数错误")
	ErrUsernameTaken      = errors.New("用户名已存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")

	ErrUserNotFound  = repository.ErrUserNotFound
	ErrBoardNotFound = repository.ErrBoardNotFound
)
