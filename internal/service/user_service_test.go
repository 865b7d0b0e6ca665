package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

func newTestUserService(users *MockUserRepository, queue *MockQueue) *UserService {
	return NewUserService(users, queue, testTopics(), bcrypt.MinCost, zap.NewNop())
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions user and enqueues onboarding", func(t *testing.T) {
		users := new(MockUserRepository)
		queue := new(MockQueue)
		svc := newTestUserService(users, queue)

		users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, pgx.ErrNoRows)
		users.On("Create", mock.Anything, mock.MatchedBy(func(user *domain.User) bool {
			return user.Email == "new@example.com" && !user.IsAdmin &&
				user.UserID != "" && user.PasswordHash != ""
		})).Return(nil)
		queue.On("Enqueue", mock.Anything, "onboarding-queue", mock.Anything).Return(nil)

		user, password, err := svc.Create(ctx, adminClaims(), UserCreateInput{
			Email: "new@example.com",
			Role:  domain.RoleUser,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))
		assert.Equal(t, "new@example.com", user.Username, "username defaults to email")
		users.AssertExpectations(t)
		queue.AssertExpectations(t)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		users := new(MockUserRepository)
		svc := newTestUserService(users, new(MockQueue))

		users.On("GetByEmail", mock.Anything, "dup@example.com").
			Return(&domain.User{UserID: "u-1", Email: "dup@example.com"}, nil)

		_, _, err := svc.Create(ctx, adminClaims(), UserCreateInput{
			Email: "dup@example.com",
			Role:  domain.RoleUser,
		})

		require.Error(t, err)
		assert.Equal(t, 409, apperrors.ToDomainError(err).HTTPStatus)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc := newTestUserService(new(MockUserRepository), new(MockQueue))

		_, _, err := svc.Create(ctx, adminClaims(), UserCreateInput{
			Email: "new@example.com",
			Role:  "superuser",
		})

		require.Error(t, err)
		assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		users := new(MockUserRepository)
		svc := newTestUserService(users, new(MockQueue))

		_, _, err := svc.Create(ctx, userClaims("worker@example.com"), UserCreateInput{
			Email: "new@example.com",
			Role:  domain.RoleUser,
		})

		require.Error(t, err)
		assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
