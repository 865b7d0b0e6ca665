package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/bus"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// UserService handles identity-record administration.
type UserService struct {
	users      repository.UserRepository
	queue      bus.Queue
	topics     config.NotifyConfig
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, queue bus.Queue, topics config.NotifyConfig, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{
		users:      users,
		queue:      queue,
		topics:     topics,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// UserCreateInput describes the admin user-creation payload.
type UserCreateInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Role      string
}

// Create provisions a user with a generated temporary password and enqueues
// the onboarding job that sets up their notification subscriptions. Returns
// the user and the plaintext temporary password for one-time delivery.
func (s *UserService) Create(ctx context.Context, claims *auth.Claims, input UserCreateInput) (*domain.User, string, error) {
	if err := auth.Authorize(auth.OpCreateUser, claims, nil); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, "", apperrors.NewValidationError("email is required", nil)
	}
	if input.Role != domain.RoleAdmin && input.Role != domain.RoleUser {
		return nil, "", apperrors.NewValidationError("role must be either 'admin' or 'user'", nil)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, "", apperrors.NewConflict("user with this email already exists", map[string]any{"email": input.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", err
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UnixMilli()
	username := input.Username
	if username == "" {
		username = input.Email
	}
	user := &domain.User{
		UserID:           uuid.NewString(),
		Email:            input.Email,
		Username:         username,
		ProviderUsername: username,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		PasswordHash:     hash,
		IsAdmin:          input.Role == domain.RoleAdmin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.queue.Enqueue(ctx, s.topics.OnboardingQueue, bus.OnboardingMessage{UserID: user.UserID, Email: user.Email}); err != nil {
		s.logger.Error("failed to enqueue onboarding job", zap.String("user_id", user.UserID), zap.Error(err))
	}
	return user, password, nil
}

// GetByEmail looks up a user; a miss maps to 404.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, err
	}
	return user, nil
}
