package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/bus"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/repository"
)

// NotificationWorker drains the fan-out queues: task assignment messages and
// user onboarding jobs. Messages that keep failing move to the dead-letter
// queue after the configured number of deliveries.
type NotificationWorker struct {
	queue     bus.Queue
	tasks     repository.TaskRepository
	users     repository.UserRepository
	publisher bus.Publisher
	topics    config.NotifyConfig
	jobs      config.JobsConfig
	logger    *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(queue bus.Queue, tasks repository.TaskRepository, users repository.UserRepository, publisher bus.Publisher, topics config.NotifyConfig, jobs config.JobsConfig, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		queue:     queue,
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		topics:    topics,
		jobs:      jobs,
		logger:    logger,
	}
}

// Run consumes both queues until the context is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	go w.consume(ctx, w.topics.TasksQueue, w.processTaskMessage)
	w.consume(ctx, w.topics.OnboardingQueue, w.processOnboardingMessage)
}

func (w *NotificationWorker) consume(ctx context.Context, queue string, process func(context.Context, *bus.QueueMessage) error) {
	timeout := time.Duration(w.jobs.QueuePollTimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.queue.Dequeue(ctx, queue, timeout)
		if err != nil {
			if errors.Is(err, bus.ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			w.logger.Error("queue dequeue failed", zap.String("queue", queue), zap.Error(err))
			continue
		}

		if err := process(ctx, msg); err != nil {
			w.retryOrDeadLetter(ctx, queue, msg, err)
		}
	}
}

// processTaskMessage resolves the task's assignee and publishes the
// assignment notification. A missing task or user drops the message: there
// is nothing a retry could fix.
func (w *NotificationWorker) processTaskMessage(ctx context.Context, msg *bus.QueueMessage) error {
	var payload bus.TaskQueuedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		w.logger.Error("malformed task message dropped", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	task, err := w.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			w.logger.Warn("task not found for queued message", zap.String("task_id", payload.TaskID))
			return nil
		}
		return err
	}

	userID, err := w.users.GetIDByEmail(ctx, task.AssignedUserEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			w.logger.Warn("assignee not found for queued task",
				zap.String("task_id", task.TaskID), zap.String("email", task.AssignedUserEmail))
			return nil
		}
		return err
	}

	deadline := "none"
	if task.Deadline != nil {
		deadline = time.UnixMilli(*task.Deadline).UTC().Format(time.RFC3339)
	}
	message := fmt.Sprintf("New task assigned: %s\nDescription: %s\nDeadline: %s",
		task.Name, task.Description, deadline)

	return w.publisher.Publish(ctx, w.topics.AssignmentTopic, message, map[string]string{
		bus.AttrUserID: userID,
		"taskId":       task.TaskID,
	})
}

// processOnboardingMessage publishes the welcome notification that completes
// user provisioning.
func (w *NotificationWorker) processOnboardingMessage(ctx context.Context, msg *bus.QueueMessage) error {
	var payload bus.OnboardingMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		w.logger.Error("malformed onboarding message dropped", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	message := fmt.Sprintf("Welcome! Your account %s is ready to receive task notifications.", payload.Email)
	return w.publisher.Publish(ctx, w.topics.AssignmentTopic, message, map[string]string{
		bus.AttrUserID:           payload.UserID,
		bus.AttrNotificationType: "USER_ONBOARDING",
	})
}

func (w *NotificationWorker) retryOrDeadLetter(ctx context.Context, queue string, msg *bus.QueueMessage, cause error) {
	maxDeliveries := w.jobs.QueueMaxDeliveries
	if maxDeliveries <= 0 {
		maxDeliveries = 3
	}
	if msg.Deliveries >= maxDeliveries {
		w.logger.Error("message moved to dead-letter queue",
			zap.String("queue", queue), zap.String("message_id", msg.ID),
			zap.Int("deliveries", msg.Deliveries), zap.Error(cause))
		if err := w.queue.DeadLetter(ctx, w.topics.DeadLetterQueue, msg); err != nil {
			w.logger.Error("dead-letter enqueue failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
		return
	}

	w.logger.Warn("message processing failed, requeueing",
		zap.String("queue", queue), zap.String("message_id", msg.ID),
		zap.Int("deliveries", msg.Deliveries), zap.Error(cause))
	if err := w.queue.Requeue(ctx, queue, msg); err != nil {
		w.logger.Error("requeue failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
