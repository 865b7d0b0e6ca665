package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/bus"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

// ExpirySweeper periodically expires tasks whose deadline has passed. The
// status change is applied directly via the store's partial update; an expiry
// notification targets the assignee.
type ExpirySweeper struct {
	tasks     repository.TaskRepository
	users     repository.UserRepository
	publisher bus.Publisher
	topics    config.NotifyConfig
	interval  time.Duration
	logger    *zap.Logger
	now       func() int64
}

// NewExpirySweeper constructs the sweeper.
func NewExpirySweeper(tasks repository.TaskRepository, users repository.UserRepository, publisher bus.Publisher, topics config.NotifyConfig, intervalMinutes int, logger *zap.Logger) *ExpirySweeper {
	if intervalMinutes <= 0 {
		intervalMinutes = 5
	}
	return &ExpirySweeper{
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		topics:    topics,
		interval:  time.Duration(intervalMinutes) * time.Minute,
		logger:    logger,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce expires every qualifying task exactly once and returns how many
// were expired. Tasks already COMPLETE or EXPIRED are skipped; per-task
// failures are logged and do not stop the sweep.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	tasks, err := s.tasks.ListIncomplete(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	expired := 0
	for _, task := range tasks {
		if task.Deadline == nil || now <= *task.Deadline {
			continue
		}
		if task.Status == domain.TaskStatusExpired || task.Status == domain.TaskStatusComplete {
			continue
		}

		if err := s.tasks.UpdateStatus(ctx, task.TaskID, domain.TaskStatusExpired, now); err != nil {
			s.logger.Error("failed to expire task", zap.String("task_id", task.TaskID), zap.Error(err))
			continue
		}
		expired++
		s.logger.Info("task expired", zap.String("task_id", task.TaskID))
		s.notifyExpiry(ctx, task)
	}
	return expired, nil
}

func (s *ExpirySweeper) notifyExpiry(ctx context.Context, task domain.Task) {
	attrs := map[string]string{"taskId": task.TaskID}
	if task.AssignedUserEmail != "" {
		userID, err := s.users.GetIDByEmail(ctx, task.AssignedUserEmail)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				s.logger.Warn("expiry recipient lookup failed", zap.String("email", task.AssignedUserEmail), zap.Error(err))
			}
			return
		}
		attrs[bus.AttrUserID] = userID
	}

	message := fmt.Sprintf("Task %q has expired; its deadline has passed.", task.Name)
	if err := s.publisher.Publish(ctx, s.topics.ExpiryTopic, message, attrs); err != nil {
		s.logger.Error("expiry notification publish failed", zap.String("task_id", task.TaskID), zap.Error(err))
	}
}
