// Package seed 往数据库里填充测试数据
package seed

import (
	"context"
	"fmt"
	"math/rand"

	"tenco_blog/internal/model"

	"github.com/go-faker/faker/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword 所有种子用户的明文密码
const DefaultPassword = "password"

type Options struct {
	Users  int
	Boards int
	// Reset 为true时先删表再重建，会删掉所有数据
	Reset bool
}

type Result struct {
	Users  int
	Boards int
}

// Run 1、(可选)删表重建 2、创建用户 3、创建帖子，作者从刚创建的用户里随机挑
func Run(ctx context.Context, db *gorm.DB, opts Options) (Result, error) {
	db = db.WithContext(ctx)

	if opts.Reset {
		if err := db.Migrator().DropTable(&model.Board{}, &model.User{}); err != nil {
			return Result{}, fmt.Errorf("drop tables: %w", err)
		}
	}
	if err := db.AutoMigrate(&model.User{}, &model.Board{}); err != nil {
		return Result{}, fmt.Errorf("migrate: %w", err)
	}

	// 所有用户同一个密码，哈希一次就够了
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	users := make([]model.User, 0, opts.Users)
	seen := make(map[string]struct{}, opts.Users)
	for len(users) < opts.Users {
		// faker可能生成重名，用户名有唯一索引
		username := faker.Username()
		if _, dup := seen[username]; dup {
			continue
		}
		seen[username] = struct{}{}
		users = append(users, model.User{
			Username: username,
			Password: string(hashed),
			Email:    faker.Email(),
		})
	}
	if len(users) == 0 {
		return Result{}, nil
	}
	if err := db.CreateInBatches(&users, 100).Error; err != nil {
		return Result{}, fmt.Errorf("create users: %w", err)
	}

	boards := make([]model.Board, 0, opts.Boards)
	for i := 0; i < opts.Boards; i++ {
		boards = append(boards, model.Board{
			Username: users[rand.Intn(len(users))].Username,
			Title:    truncate(faker.Sentence(), 100),
			Content:  faker.Paragraph(),
		})
	}
	if len(boards) > 0 {
		if err := db.CreateInBatches(&boards, 100).Error; err != nil {
			return Result{}, fmt.Errorf("create boards: %w", err)
		}
	}
	return Result{Users: len(users), Boards: len(boards)}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
