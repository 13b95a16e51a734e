package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tenco_blog/internal/data"
	"tenco_blog/internal/model"
	"tenco_blog/internal/observability"
	"tenco_blog/internal/repository"
	"tenco_blog/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const (
	// 遵循：项目名.业务领域.实体/功能
	QueueBoardView = "blog.board_view.queue"

	maxTitleLength = 100
	cacheKeyBoard  = "board"
)

// BoardViewMessage 是帖子被浏览一次的消息，由consumer落库
type BoardViewMessage struct {
	BoardID  uint64    `json:"board_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// EventPublisher 由 rabbitmq.Publisher 实现
type EventPublisher interface {
	PublishJSON(ctx context.Context, queue string, v interface{}) error
}

type BoardService interface {
	List(ctx context.Context) ([]model.Board, error)
	// Detail 是详情页：走缓存，并发一条浏览消息
	Detail(ctx context.Context, boardID uint64) (*model.Board, error)
	// Find 直接查库，修改页用
	Find(ctx context.Context, boardID uint64) (*model.Board, error)
	Save(ctx context.Context, title, content, username string) (*model.Board, error)
	Update(ctx context.Context, boardID uint64, title, content string) (*model.Board, error)
	Delete(ctx context.Context, boardID uint64) error
}

type boardService struct {
	sf singleflight.Group

	boardRepo repository.BoardRepository
	uow       data.UnitOfWork
	publisher EventPublisher // 可以为nil，为nil就不发浏览消息
	metrics   *observability.Metrics
}

func NewBoardService(boardRepo repository.BoardRepository, uow data.UnitOfWork, publisher EventPublisher, metrics *observability.Metrics) BoardService {
	return &boardService{
		boardRepo: boardRepo,
		uow:       uow,
		publisher: publisher,
		metrics:   metrics,
	}
}

func validateBoard(title, content string) error {
	if err := required("标题", title); err != nil {
		return err
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: 标题不能超过%d个字", ErrInvalidInput, maxTitleLength)
	}
	return required("内容", content)
}

// 全部帖子，id倒序
func (s *boardService) List(ctx context.Context) ([]model.Board, error) {
	return s.boardRepo.FindAll(ctx)
}

// 帖子详情：1、查Redis缓存 2、未命中通过SingleFlight查库并回写缓存 3、发浏览消息（失败只记日志）
func (s *boardService) Detail(ctx context.Context, boardID uint64) (*model.Board, error) {
	logCtx := logger.Log.WithField("board_id", boardID)

	board, err := s.boardRepo.GetBoardCache(ctx, boardID)
	if err != nil {
		// Redis挂了就降级直接查库
		logCtx.WithError(err).Warn("读取帖子缓存失败")
	}
	if board != nil {
		s.metrics.CacheHit(cacheKeyBoard)
	} else {
		s.metrics.CacheMiss(cacheKeyBoard)
		result, err, _ := s.sf.Do(fmt.Sprintf("get_board_%d", boardID), func() (interface{}, error) {
			dbBoard, dbErr := s.boardRepo.FindByID(ctx, boardID)
			if dbErr != nil {
				return nil, dbErr
			}
			if err := s.boardRepo.SetBoardCache(ctx, dbBoard); err != nil {
				logCtx.WithError(err).Warn("写入帖子缓存失败")
			}
			return dbBoard, nil
		})
		if err != nil {
			return nil, err
		}
		board = result.(*model.Board)
	}

	s.publishView(ctx, board.ID)
	return board, nil
}

func (s *boardService) publishView(ctx context.Context, boardID uint64) {
	if s.publisher == nil {
		return
	}
	msg := BoardViewMessage{BoardID: boardID, ViewedAt: time.Now()}
	if err := s.publisher.PublishJSON(ctx, QueueBoardView, msg); err != nil {
		logger.Log.WithError(err).WithField("board_id", boardID).Error("浏览消息投递失败")
		return
	}
	s.metrics.Published(QueueBoardView)
}

func (s *boardService) Find(ctx context.Context, boardID uint64) (*model.Board, error) {
	return s.boardRepo.FindByID(ctx, boardID)
}

func (s *boardService) Save(ctx context.Context, title, content, username string) (*model.Board, error) {
	username = strings.TrimSpace(username)
	if err := validateBoard(title, content); err != nil {
		return nil, err
	}
	if err := required("作者", username); err != nil {
		return nil, err
	}

	newBoard := &model.Board{
		Title:    strings.TrimSpace(title),
		Content:  content,
		Username: username,
	}
	if err := s.boardRepo.Create(ctx, newBoard); err != nil {
		return nil, err
	}
	return newBoard, nil
}

// 修改帖子：事务里 SELECT ... FOR UPDATE，只改title/content，提交后删缓存
func (s *boardService) Update(ctx context.Context, boardID uint64, title, content string) (*model.Board, error) {
	if err := validateBoard(title, content); err != nil {
		return nil, err
	}

	var updated *model.Board
	err := s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
		board, err := repos.BoardRepo.FindByIDForUpdate(ctx, boardID)
		if err != nil {
			return err
		}
		if err := repos.BoardRepo.UpdateContent(ctx, board.ID, strings.TrimSpace(title), content); err != nil {
			return err
		}
		updated, err = repos.BoardRepo.FindByID(ctx, board.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, boardID)
	return updated, nil
}

// 删除帖子，不做作者校验
func (s *boardService) Delete(ctx context.Context, boardID uint64) error {
	if err := s.boardRepo.DeleteByID(ctx, boardID); err != nil {
		return err
	}
	s.evict(ctx, boardID)
	return nil
}

func (s *boardService) evict(ctx context.Context, boardID uint64) {
	if err := s.boardRepo.DeleteBoardCache(ctx, boardID); err != nil {
		logger.Log.WithError(err).WithField("board_id", boardID).Warn("删除帖子缓存失败")
	}
}
