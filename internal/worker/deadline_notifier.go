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

// DeadlineNotifier reminds assignees of open tasks whose deadline falls
// inside the upcoming window. A per-task marker with the window's TTL keeps
// repeated scans from re-notifying the same deadline.
type DeadlineNotifier struct {
	tasks     repository.TaskRepository
	users     repository.UserRepository
	publisher bus.Publisher
	dedup     bus.Deduper
	topics    config.NotifyConfig
	window    time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() int64
}

// NewDeadlineNotifier constructs the notifier.
func NewDeadlineNotifier(tasks repository.TaskRepository, users repository.UserRepository, publisher bus.Publisher, dedup bus.Deduper, topics config.NotifyConfig, jobs config.JobsConfig, logger *zap.Logger) *DeadlineNotifier {
	windowMinutes := jobs.DeadlineWindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 60
	}
	scanMinutes := jobs.DeadlineScanMinutes
	if scanMinutes <= 0 {
		scanMinutes = 15
	}
	return &DeadlineNotifier{
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		dedup:     dedup,
		topics:    topics,
		window:    time.Duration(windowMinutes) * time.Minute,
		interval:  time.Duration(scanMinutes) * time.Minute,
		logger:    logger,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Run scans on a fixed interval until the context is cancelled.
func (n *DeadlineNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.NotifyOnce(ctx); err != nil {
				n.logger.Error("deadline scan failed", zap.Error(err))
			}
		}
	}
}

// NotifyOnce publishes a reminder for every open task due within the window
// and returns the number of reminders sent.
func (n *DeadlineNotifier) NotifyOnce(ctx context.Context) (int, error) {
	tasks, err := n.tasks.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	now := n.now()
	windowEnd := now + n.window.Milliseconds()
	sent := 0

	for _, task := range tasks {
		if task.Status != domain.TaskStatusOpen || task.Deadline == nil {
			continue
		}
		if *task.Deadline < now || *task.Deadline > windowEnd {
			continue
		}

		first, err := n.dedup.MarkIfFirst(ctx, task.TaskID, n.window)
		if err != nil {
			n.logger.Error("reminder dedup check failed", zap.String("task_id", task.TaskID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		if n.remind(ctx, task) {
			sent++
		}
	}
	return sent, nil
}

func (n *DeadlineNotifier) remind(ctx context.Context, task domain.Task) bool {
	userID, err := n.users.GetIDByEmail(ctx, task.AssignedUserEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			n.logger.Warn("no user found for reminder", zap.String("email", task.AssignedUserEmail))
		} else {
			n.logger.Error("reminder recipient lookup failed", zap.String("email", task.AssignedUserEmail), zap.Error(err))
		}
		return false
	}

	due := time.UnixMilli(*task.Deadline).UTC().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf("Reminder: Task %q (TaskId: %s) is due at %s UTC", task.Name, task.TaskID, due)

	if err := n.publisher.Publish(ctx, n.topics.DeadlineTopic, message, map[string]string{
		bus.AttrUserID: userID,
		"taskId":       task.TaskID,
	}); err != nil {
		n.logger.Error("reminder publish failed", zap.String("task_id", task.TaskID), zap.Error(err))
		return false
	}
	n.logger.Info("deadline reminder published",
		zap.String("task_id", task.TaskID), zap.String("assigned_to", task.AssignedUserEmail))
	return true
}
