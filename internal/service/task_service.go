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

// TaskService coordinates task workflows: the state machine, persistence and
// notification dispatch.
type TaskService struct {
	tasks     repository.TaskRepository
	users     repository.UserRepository
	publisher bus.Publisher
	queue     bus.Queue
	topics    config.NotifyConfig
	logger    *zap.Logger
	now       func() int64
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo  repository.TaskRepository
	UserRepo  repository.UserRepository
	Publisher bus.Publisher
	Queue     bus.Queue
	Topics    config.NotifyConfig
	Logger    *zap.Logger
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Name              string
	Description       string
	Responsibility    string
	AssignedUserEmail string
	Deadline          *int64
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:     deps.TaskRepo,
		users:     deps.UserRepo,
		publisher: deps.Publisher,
		queue:     deps.Queue,
		topics:    deps.Topics,
		logger:    deps.Logger,
		now:       nowMillis,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Create stores a new task with status OPEN and fans it out to the tasks
// queue for assignment notification processing.
func (s *TaskService) Create(ctx context.Context, claims *auth.Claims, input TaskCreateInput) (*domain.Task, error) {
	if err := auth.Authorize(auth.OpCreateTask, claims, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Responsibility) == "" {
		return nil, apperrors.NewValidationError("name and responsibility are required", nil)
	}
	if input.AssignedUserEmail != "" {
		if _, err := s.users.GetByEmail(ctx, input.AssignedUserEmail); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("assigned user does not exist", map[string]any{"email": input.AssignedUserEmail})
			}
			return nil, err
		}
	}

	now := s.now()
	task := &domain.Task{
		TaskID:            uuid.NewString(),
		Name:              strings.TrimSpace(input.Name),
		Description:       strings.TrimSpace(input.Description),
		Status:            domain.TaskStatusOpen,
		Deadline:          input.Deadline,
		Responsibility:    strings.TrimSpace(input.Responsibility),
		AssignedUserEmail: input.AssignedUserEmail,
		CreatedBy:         claims.Email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.tasks.Put(ctx, task); err != nil {
		return nil, err
	}

	if task.AssignedUserEmail != "" {
		if err := s.queue.Enqueue(ctx, s.topics.TasksQueue, bus.TaskQueuedMessage{TaskID: task.TaskID}); err != nil {
			s.logger.Error("failed to enqueue task fan-out", zap.String("task_id", task.TaskID), zap.Error(err))
		}
	}
	return task, nil
}

// Get fetches a task ensuring the caller may see it.
func (s *TaskService) Get(ctx context.Context, claims *auth.Claims, taskID string) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(auth.OpGetTask, claims, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns all tasks for admins and the caller's assignments otherwise.
func (s *TaskService) List(ctx context.Context, claims *auth.Claims) ([]domain.Task, error) {
	if claims == nil || claims.Email == "" {
		return nil, apperrors.NewUnauthorized("missing claims")
	}
	if claims.IsAdmin() {
		return s.tasks.ListAll(ctx)
	}
	return s.tasks.ListByAssignee(ctx, claims.Email)
}

// Update applies a role-gated partial update and publishes the notifications
// the transition produced.
func (s *TaskService) Update(ctx context.Context, claims *auth.Claims, taskID string, patch TaskPatch) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, notifications, err := applyUpdate(*task, claims, patch, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Put(ctx, &updated); err != nil {
		return nil, err
	}
	s.dispatch(ctx, notifications)
	return &updated, nil
}

// Close marks a task CLOSED and notifies the assignee it was taken from.
func (s *TaskService) Close(ctx context.Context, claims *auth.Claims, taskID, adminComment string) (*domain.Task, error) {
	if err := auth.Authorize(auth.OpCloseTask, claims, nil); err != nil {
		return nil, err
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, notification := closeTask(*task, adminComment, s.now())
	if err := s.tasks.Put(ctx, &updated); err != nil {
		return nil, err
	}
	s.dispatch(ctx, []Notification{notification})
	return &updated, nil
}

// Reassign moves a closed task to a new assignee. The assignee must exist;
// the task reopens and both the direct notification and the queue fan-out
// fire.
func (s *TaskService) Reassign(ctx context.Context, claims *auth.Claims, taskID, newAssigneeEmail string) (*domain.Task, error) {
	if err := auth.Authorize(auth.OpReassignTask, claims, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(newAssigneeEmail) == "" {
		return nil, apperrors.NewValidationError("assignedTo is required", nil)
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetIDByEmail(ctx, newAssigneeEmail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("user not found for email", map[string]any{"email": newAssigneeEmail})
		}
		return nil, err
	}

	updated, notification, err := reassignTask(*task, newAssigneeEmail, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Put(ctx, &updated); err != nil {
		return nil, err
	}
	s.dispatch(ctx, []Notification{notification})
	if err := s.queue.Enqueue(ctx, s.topics.TasksQueue, bus.TaskQueuedMessage{TaskID: updated.TaskID}); err != nil {
		s.logger.Error("failed to enqueue reassignment fan-out", zap.String("task_id", updated.TaskID), zap.Error(err))
	}
	return &updated, nil
}

func (s *TaskService) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, apperrors.NewValidationError("taskId is required", nil)
	}
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperrors.NewNotFound("task", map[string]any{"taskId": taskID})
		}
		return nil, err
	}
	return task, nil
}

// dispatch resolves recipients and publishes pending notifications. Publish
// failures never fail the primary operation.
func (s *TaskService) dispatch(ctx context.Context, notifications []Notification) {
	for _, n := range notifications {
		attrs := make(map[string]string, len(n.Attributes)+1)
		for k, v := range n.Attributes {
			attrs[k] = v
		}
		if n.RecipientEmail != "" {
			userID, err := s.users.GetIDByEmail(ctx, n.RecipientEmail)
			if err != nil {
				s.logger.Warn("notification recipient not resolved",
					zap.String("email", n.RecipientEmail), zap.Error(err))
				continue
			}
			attrs[bus.AttrUserID] = userID
		}

		if err := s.publisher.Publish(ctx, s.topicFor(n.Kind), n.Message, attrs); err != nil {
			s.logger.Error("notification publish failed",
				zap.String("kind", string(n.Kind)), zap.Error(err))
		}
	}
}

func (s *TaskService) topicFor(kind NotificationKind) string {
	switch kind {
	case NotificationAssignment:
		return s.topics.AssignmentTopic
	case NotificationCompletion:
		return s.topics.CompletionTopic
	case NotificationClosure:
		return s.topics.ClosureTopic
	case NotificationExpiry:
		return s.topics.ExpiryTopic
	case NotificationDeadline:
		return s.topics.DeadlineTopic
	}
	return s.topics.AssignmentTopic
}
