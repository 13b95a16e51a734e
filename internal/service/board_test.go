package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tenco_blog/internal/data"
	"tenco_blog/internal/observability"
	"tenco_blog/internal/repository"
	"tenco_blog/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher 记录发出去的消息
type fakePublisher struct {
	mu   sync.Mutex
	msgs []BoardViewMessage
	err  error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, queue string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if queue == QueueBoardView {
		p.msgs = append(p.msgs, v.(BoardViewMessage))
	}
	return nil
}

type boardFixture struct {
	svc     BoardService
	repo    repository.BoardRepository
	mr      *miniredis.Miniredis
	pub     *fakePublisher
	metrics *observability.Metrics
}

func newBoardFixture(t testing.TB) *boardFixture {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	boardRepo := repository.NewBoardRepository(db, rdb)
	uow := data.NewUnitOfWork(db, boardRepo, repository.NewUserRepository(db))
	pub := &fakePublisher{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return &boardFixture{
		svc:     NewBoardService(boardRepo, uow, pub, metrics),
		repo:    boardRepo,
		mr:      mr,
		pub:     pub,
		metrics: metrics,
	}
}

func TestBoardService_List_DescendingID(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := f.svc.Save(ctx, title, "content", "ssar")
		require.NoError(t, err)
	}

	boards, err := f.svc.List(ctx)

	require.NoError(t, err)
	require.Len(t, boards, 3)
	assert.Equal(t, "c", boards[0].Title)
	assert.Equal(t, "a", boards[2].Title)
}

func TestBoardService_SaveThenDetail(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, "제목", "내용", "ssar")
	require.NoError(t, err)

	got, err := f.svc.Detail(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "제목", got.Title)
	assert.Equal(t, "내용", got.Content)
	assert.Equal(t, "ssar", got.Username)

	// 第一次未命中并回写缓存，第二次命中
	assert.True(t, f.mr.Exists("board:info:1"))
	_, err = f.svc.Detail(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.CacheMissesTotal.WithLabelValues("board")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.CacheHitsTotal.WithLabelValues("board")))

	// 每次详情都发一条浏览消息
	require.Len(t, f.pub.msgs, 2)
	assert.Equal(t, saved.ID, f.pub.msgs[0].BoardID)
}

func TestBoardService_Detail_PublishFailureIsNotFatal(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()
	f.pub.err = errors.New("amqp down")
	saved, err := f.svc.Save(ctx, "t", "c", "u")
	require.NoError(t, err)

	got, err := f.svc.Detail(ctx, saved.ID)

	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
}

func TestBoardService_Detail_RedisDownFallsBackToDB(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()
	saved, err := f.svc.Save(ctx, "t", "c", "u")
	require.NoError(t, err)

	f.mr.Close()
	got, err := f.svc.Detail(ctx, saved.ID)

	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestBoardService_Detail_NotFound(t *testing.T) {
	f := newBoardFixture(t)

	_, err := f.svc.Detail(context.Background(), 404)

	assert.ErrorIs(t, err, ErrBoardNotFound)
	assert.Empty(t, f.pub.msgs)
}

func TestBoardService_Save_Validation(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, "  ", "c", "u")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Save(ctx, "t", "", "u")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Save(ctx, "t", "c", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := make([]rune, 101)
	for i := range long {
		long[i] = '가'
	}
	_, err = f.svc.Save(ctx, string(long), "c", "u")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBoardService_Update_OnlyTitleAndContent(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()
	saved, err := f.svc.Save(ctx, "old", "old content", "ssar")
	require.NoError(t, err)
	// 先把旧数据放进缓存
	_, err = f.svc.Detail(ctx, saved.ID)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, saved.ID, "new", "new content")

	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, "ssar", updated.Username)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "new content", updated.Content)
	assert.False(t, f.mr.Exists("board:info:1"), "修改后缓存应被删除")

	got, err := f.svc.Detail(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
}

func TestBoardService_Update_InFlightReadCannotRestoreOldCache(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()
	saved, err := f.svc.Save(ctx, "old", "old content", "ssar")
	require.NoError(t, err)

	// 一个在修改提交之前就查完库、还没来得及写缓存的读请求
	stale, err := f.repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, saved.ID, "new", "new content")
	require.NoError(t, err)

	require.NoError(t, f.repo.SetBoardCache(ctx, stale))

	got, err := f.svc.Detail(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	cached, err := f.repo.GetBoardCache(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, cached, "保护期内不回写缓存")
}

func TestBoardService_Update_NotFound(t *testing.T) {
	f := newBoardFixture(t)

	_, err := f.svc.Update(context.Background(), 77, "t", "c")

	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestBoardService_Delete(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()
	saved, err := f.svc.Save(ctx, "t", "c", "u")
	require.NoError(t, err)
	_, err = f.svc.Detail(ctx, saved.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, saved.ID))

	_, err = f.svc.Detail(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrBoardNotFound)
	_, err = f.svc.Find(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrBoardNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, saved.ID), ErrBoardNotFound)
}

func TestBoardService_NilPublisher(t *testing.T) {
	db := testutil.NewDB(t)
	boardRepo := repository.NewBoardRepository(db, nil)
	uow := data.NewUnitOfWork(db, boardRepo, repository.NewUserRepository(db))
	svc := NewBoardService(boardRepo, uow, nil, nil)
	ctx := context.Background()

	saved, err := svc.Save(ctx, "t", "c", "u")
	require.NoError(t, err)
	got, err := svc.Detail(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
}

// 缓存击穿压测：先删缓存，再让大量goroutine同时查同一篇帖子
func BenchmarkBoardService_Detail_CacheBreakdown(b *testing.B) {
	f := newBoardFixture(b)
	ctx := context.Background()
	saved, err := f.svc.Save(ctx, "hot", "content", "ssar")
	require.NoError(b, err)
	f.mr.FlushAll()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := f.svc.Detail(ctx, saved.ID); err != nil {
				b.Errorf("Detail failed: %v", err)
			}
		}
	})
}
