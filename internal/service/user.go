package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenco_blog/internal/data"
	"tenco_blog/internal/model"
	"tenco_blog/internal/repository"
)

// 用户服务接口：注册、登录、修改资料、按ID查（会话中间件用）
type UserService interface {
	Join(ctx context.Context, username, password, email string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, error)
	Update(ctx context.Context, userID uint64, password, email string) (*model.User, error)
	GetByID(ctx context.Context, userID uint64) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	uow      data.UnitOfWork
}

func NewUserService(userRepo repository.UserRepository, uow data.UnitOfWork) UserService {
	return &userService{
		userRepo: userRepo,
		uow:      uow,
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s不能为空", ErrInvalidInput, field)
	}
	return nil
}

// 注册逻辑：1、校验必填 2、检查是否重名 3、密码加密 4、插入数据库
func (s *userService) Join(ctx context.Context, username, password, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	for _, err := range []error{
		required("用户名", username),
		required("密码", password),
		required("邮箱", email),
	} {
		if err != nil {
			return nil, err
		}
	}

	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &model.User{
		Username: username,
		Password: hashed,
		Email:    email,
	}
	// 查重和插入之间可能被别人抢先，唯一索引兜底
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if repository.IsDuplicateEntry(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return newUser, nil
}

// 登录逻辑：1、按用户名查 2、bcrypt比对；不管哪一步失败都只返回 ErrInvalidCredentials
func (s *userService) Login(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if err := required("用户名", username); err != nil {
		return nil, err
	}
	if err := required("密码", password); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// 修改资料：在一个事务里 查-改-再查，返回最新的用户
func (s *userService) Update(ctx context.Context, userID uint64, password, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if err := required("密码", password); err != nil {
		return nil, err
	}
	if err := required("邮箱", email); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	var updated *model.User
	err = s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
		if _, err := repos.UserRepo.FindByID(ctx, userID); err != nil {
			return err
		}
		if err := repos.UserRepo.UpdateByID(ctx, userID, hashed, email); err != nil {
			return err
		}
		u, err := repos.UserRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *userService) GetByID(ctx context.Context, userID uint64) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
