package data

import (
	"context"

	"tenco_blog/internal/repository"

	"gorm.io/gorm"
)

// UnitOfWork 把一个函数包在数据库事务里执行，并给它提供绑定了事务的Repositories
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos *TransactionalRepositories) error) error
}

// TransactionalRepositories 持有同一个事务里要用到的 Repository
type TransactionalRepositories struct {
	BoardRepo repository.BoardRepository
	UserRepo  repository.UserRepository
}

type gormUnitOfWork struct {
	db        *gorm.DB
	boardRepo repository.BoardRepository
	userRepo  repository.UserRepository
}

// NewUnitOfWork 接收的是原始的、非事务的 repositories
func NewUnitOfWork(db *gorm.DB, boardRepo repository.BoardRepository, userRepo repository.UserRepository) UnitOfWork {
	return &gormUnitOfWork{
		db:        db,
		boardRepo: boardRepo,
		userRepo:  userRepo,
	}
}

// fn 返回error就ROLLBACK，返回nil就COMMIT
func (u *gormUnitOfWork) Execute(ctx context.Context, fn func(repos *TransactionalRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TransactionalRepositories{
			BoardRepo: u.boardRepo.WithTx(tx),
			UserRepo:  u.userRepo.WithTx(tx),
		})
	})
}
