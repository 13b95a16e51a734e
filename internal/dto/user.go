package dto

import "tenco_blog/internal/model"

type JoinForm struct {
	Username string `form:"username" binding:"required,max=64"`
	Password string `form:"password" binding:"required,max=72"`
	Email    string `form:"email" binding:"required,email,max=255"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type UserUpdateForm struct {
	Password string `form:"password" binding:"required,max=72"`
	Email    string `form:"email" binding:"required,email,max=255"`
}

// UserInfo 是放进模板的用户信息，不带密码
type UserInfo struct {
	ID       uint64
	Username string
	Email    string
}

func ToUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}
