package service

import (
	"context"
	"errors"
	"testing"

	"tenco_blog/internal/data"
	"tenco_blog/internal/model"
	"tenco_blog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MockUserRepository 是 repository.UserRepository 的mock
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID uint64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateByID(ctx context.Context, userID uint64, hashedPassword, email string) error {
	args := m.Called(ctx, userID, hashedPassword, email)
	return args.Error(0)
}

func (m *MockUserRepository) WithTx(tx *gorm.DB) repository.UserRepository {
	return m
}

// fakeUnitOfWork 不开事务，直接把mock仓库交给fn
type fakeUnitOfWork struct {
	repos *data.TransactionalRepositories
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(repos *data.TransactionalRepositories) error) error {
	return fn(u.repos)
}

func newUserServiceWithMock() (*MockUserRepository, UserService) {
	repo := new(MockUserRepository)
	uow := &fakeUnitOfWork{repos: &data.TransactionalRepositories{UserRepo: repo}}
	return repo, NewUserService(repo, uow)
}

func TestUserService_Join_Success(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()

	repo.On("FindByUsername", ctx, "ssar").Return(nil, repository.ErrUserNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		// 存的必须是哈希，不能是明文
		assert.NotEqual(t, "1234", u.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("1234")))
		return u.Username == "ssar" && u.Email == "ssar@nate.com"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 1
	}).Return(nil).Once()

	user, err := svc.Join(ctx, " ssar ", "1234", "ssar@nate.com")

	require.NoError(t, err)
	assert.Equal(t, uint64(1), user.ID)
	repo.AssertExpectations(t)
}

func TestUserService_Join_DuplicateUsername(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()

	repo.On("FindByUsername", ctx, "ssar").Return(&model.User{Username: "ssar"}, nil).Once()

	_, err := svc.Join(ctx, "ssar", "1234", "ssar@nate.com")

	assert.ErrorIs(t, err, ErrUsernameTaken)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Join_RaceOnInsert(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()

	repo.On("FindByUsername", ctx, "ssar").Return(nil, repository.ErrUserNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(repository.ErrDuplicateEntry).Once()

	_, err := svc.Join(ctx, "ssar", "1234", "ssar@nate.com")

	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserService_Join_Validation(t *testing.T) {
	_, svc := newUserServiceWithMock()
	ctx := context.Background()

	cases := []struct{ username, password, email string }{
		{"", "1234", "a@b.c"},
		{"ssar", "", "a@b.c"},
		{"ssar", "1234", "   "},
	}
	for _, c := range cases {
		_, err := svc.Join(ctx, c.username, c.password, c.email)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestUserService_Join_PasswordTooLong(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()
	repo.On("FindByUsername", ctx, "ssar").Return(nil, repository.ErrUserNotFound).Once()

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Join(ctx, "ssar", string(long), "a@b.c")

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserService_Login(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()
	hashed, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{BaseModel: model.BaseModel{ID: 3}, Username: "ssar", Password: string(hashed)}

	repo.On("FindByUsername", ctx, "ssar").Return(stored, nil)
	repo.On("FindByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound)

	user, err := svc.Login(ctx, "ssar", "1234")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), user.ID)

	_, err = svc.Login(ctx, "ssar", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 用户不存在和密码错误返回同一个错误
	_, err = svc.Login(ctx, "ghost", "1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "1234")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserService_Login_RepoError(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()
	dbErr := errors.New("connection refused")
	repo.On("FindByUsername", ctx, "ssar").Return(nil, dbErr)

	_, err := svc.Login(ctx, "ssar", "1234")

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Update(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()
	before := &model.User{BaseModel: model.BaseModel{ID: 5}, Username: "cos", Email: "old@x.com"}
	after := &model.User{BaseModel: model.BaseModel{ID: 5}, Username: "cos", Email: "new@x.com"}

	repo.On("FindByID", ctx, uint64(5)).Return(before, nil).Once()
	repo.On("UpdateByID", ctx, uint64(5), mock.MatchedBy(func(hashed string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte("newpass")) == nil
	}), "new@x.com").Return(nil).Once()
	repo.On("FindByID", ctx, uint64(5)).Return(after, nil).Once()

	user, err := svc.Update(ctx, 5, "newpass", "new@x.com")

	require.NoError(t, err)
	assert.Equal(t, "new@x.com", user.Email)
	repo.AssertExpectations(t)
}

func TestUserService_Update_MissingUser(t *testing.T) {
	repo, svc := newUserServiceWithMock()
	ctx := context.Background()
	repo.On("FindByID", ctx, uint64(9)).Return(nil, repository.ErrUserNotFound).Once()

	_, err := svc.Update(ctx, 9, "p", "e@x.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
	repo.AssertNotCalled(t, "UpdateByID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
