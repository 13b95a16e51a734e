package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"tenco_blog/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 删除标记的存活时间，要比一次查库慢得多的情况还长
const boardEvictionGuard = 10 * time.Second

// KEYS[1] 缓存key，KEYS[2] 删除标记；ARGV[1] JSON，ARGV[2] 过期毫秒数
// 返回1表示写入，0表示有删除标记没写
var setUnlessEvictedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
    return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

type BoardRepository interface {
	Create(ctx context.Context, board *model.Board) error
	FindAll(ctx context.Context) ([]model.Board, error)
	FindByID(ctx context.Context, boardID uint64) (*model.Board, error)
	// 带锁的查找，只在事务里用
	FindByIDForUpdate(ctx context.Context, boardID uint64) (*model.Board, error)
	UpdateContent(ctx context.Context, boardID uint64, title, content string) error
	DeleteByID(ctx context.Context, boardID uint64) error
	IncrementViewCount(ctx context.Context, boardID uint64) error

	GetBoardCache(ctx context.Context, boardID uint64) (*model.Board, error)
	SetBoardCache(ctx context.Context, board *model.Board) error
	DeleteBoardCache(ctx context.Context, boardID uint64) error

	WithTx(tx *gorm.DB) BoardRepository
}

type boardRepository struct {
	db  *gorm.DB
	rdb *redis.Client // 为nil时缓存相关方法什么都不做
}

func NewBoardRepository(db *gorm.DB, rdb *redis.Client) BoardRepository {
	return &boardRepository{
		db:  db,
		rdb: rdb,
	}
}

// WithTx 返回绑定事务的实例，事务中不操作Redis
func (r *boardRepository) WithTx(tx *gorm.DB) BoardRepository {
	return &boardRepository{
		db: tx,
	}
}

func (r *boardRepository) Create(ctx context.Context, board *model.Board) error {
	return translateError(r.db.WithContext(ctx).Create(board).Error)
}

// SELECT * FROM boards ORDER BY id DESC
func (r *boardRepository) FindAll(ctx context.Context) ([]model.Board, error) {
	var boards []model.Board
	if err := r.db.WithContext(ctx).Order("id desc").Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *boardRepository) FindByID(ctx context.Context, boardID uint64) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).First(&board, boardID).Error; err != nil {
		return nil, translateLookup(err, ErrBoardNotFound)
	}
	return &board, nil
}

// SELECT * FROM boards WHERE id = ? LIMIT 1 FOR UPDATE，锁和事务同生共死
func (r *boardRepository) FindByIDForUpdate(ctx context.Context, boardID uint64) (*model.Board, error) {
	var board model.Board
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&board, boardID).Error
	if err != nil {
		return nil, translateLookup(err, ErrBoardNotFound)
	}
	return &board, nil
}

// 只更新title和content两列，id和username不动
func (r *boardRepository) UpdateContent(ctx context.Context, boardID uint64, title, content string) error {
	err := r.db.WithContext(ctx).Model(&model.Board{}).Where("id = ?", boardID).Updates(map[string]interface{}{
		"title":   title,
		"content": content,
	}).Error
	return translateError(err)
}

func (r *boardRepository) DeleteByID(ctx context.Context, boardID uint64) error {
	result := r.db.WithContext(ctx).Delete(&model.Board{}, boardID)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// UPDATE boards SET view_count = view_count + 1 WHERE id = ?
func (r *boardRepository) IncrementViewCount(ctx context.Context, boardID uint64) error {
	result := r.db.WithContext(ctx).Model(&model.Board{}).Where("id = ?", boardID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func (r *boardRepository) keyBoardInfo(boardID uint64) string {
	return fmt.Sprintf("board:info:%d", boardID)
}

func (r *boardRepository) keyBoardEvicted(boardID uint64) string {
	return fmt.Sprintf("board:evicted:%d", boardID)
}

// 从Redis读单个帖子：缓存不存在返回(nil, nil)，Redis本身出错才返回error
func (r *boardRepository) GetBoardCache(ctx context.Context, boardID uint64) (*model.Board, error) {
	if r.rdb == nil {
		return nil, nil
	}
	boardJSON, err := r.rdb.Get(ctx, r.keyBoardInfo(boardID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var board model.Board
	if err := json.Unmarshal([]byte(boardJSON), &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// 写缓存，过期时间加随机数防止缓存雪崩
// 刚被 DeleteBoardCache 删过的帖子在保护期内不回写，挡住删除前就查出来的旧数据
func (r *boardRepository) SetBoardCache(ctx context.Context, board *model.Board) error {
	if r.rdb == nil {
		return nil
	}
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return err
	}
	expiration := time.Minute*5 + time.Duration(rand.Intn(60))*time.Second
	keys := []string{r.keyBoardInfo(board.ID), r.keyBoardEvicted(board.ID)}
	return setUnlessEvictedScript.Run(ctx, r.rdb, keys, boardJSON, expiration.Milliseconds()).Err()
}

// 删缓存的同时立一个短期的删除标记，两步在一个事务里
func (r *boardRepository) DeleteBoardCache(ctx context.Context, boardID uint64) error {
	if r.rdb == nil {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keyBoardEvicted(boardID), 1, boardEvictionGuard)
		pipe.Del(ctx, r.keyBoardInfo(boardID))
		return nil
	})
	return err
}
