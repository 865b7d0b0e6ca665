package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/task-service/internal/domain"
)

// ErrTaskNotFound signals a point lookup miss. Callers branch on it instead
// of treating a missing record as a failure.
var ErrTaskNotFound = errors.New("task not found")

const (
	taskKeyPrefix     = "task:"
	taskIDSetKey      = "tasks:ids"
	assigneeSetPrefix = "tasks:assignee:"
)

// TaskRepository is the key-value access layer for task records. Put is a
// full-record replace with last-writer-wins semantics; there is no optimistic
// concurrency token, concurrent writers to the same task race by design.
type TaskRepository interface {
	Put(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	ListAll(ctx context.Context) ([]domain.Task, error)
	ListByAssignee(ctx context.Context, email string) ([]domain.Task, error)
	ListIncomplete(ctx context.Context) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus, updatedAt int64) error
}

type taskRepository struct {
	client *redis.Client
}

// NewTaskRepository returns a Redis-backed implementation.
func NewTaskRepository(client *redis.Client) (TaskRepository, error) {
	if client == nil {
		return nil, errors.New("task store client not configured")
	}
	return &taskRepository{client: client}, nil
}

func taskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

func assigneeKey(email string) string {
	return assigneeSetPrefix + email
}

// Put replaces the record and maintains the id and assignee index sets. The
// old record is read first so a changed assignee is removed from its previous
// index; the read and write are not serialized against other writers, which
// matches the store's last-full-write-wins contract.
func (r *taskRepository) Put(ctx context.Context, task *domain.Task) error {
	if task.TaskID == "" {
		return errors.New("taskId cannot be empty")
	}

	prevAssignee := ""
	prev, err := r.client.HGetAll(ctx, taskKey(task.TaskID)).Result()
	if err != nil {
		return fmt.Errorf("read previous record: %w", err)
	}
	if len(prev) > 0 {
		prevAssignee = prev[fieldAssignedUserEmail]
	}

	fields := taskToFields(task)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, taskKey(task.TaskID))
		pipe.HSet(ctx, taskKey(task.TaskID), fields)
		pipe.SAdd(ctx, taskIDSetKey, task.TaskID)
		if prevAssignee != "" && prevAssignee != task.AssignedUserEmail {
			pipe.SRem(ctx, assigneeKey(prevAssignee), task.TaskID)
		}
		if task.AssignedUserEmail != "" {
			pipe.SAdd(ctx, assigneeKey(task.AssignedUserEmail), task.TaskID)
		}
		return nil
	})
	return err
}

func (r *taskRepository) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, errors.New("taskId cannot be empty")
	}
	fields, err := r.client.HGetAll(ctx, taskKey(taskID)).Result()
	if err != nil {
		return nil, err
	}
	return taskFromFields(fields)
}

func (r *taskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	ids, err := r.client.SMembers(ctx, taskIDSetKey).Result()
	if err != nil {
		return nil, err
	}
	return r.fetchTasks(ctx, ids)
}

func (r *taskRepository) ListByAssignee(ctx context.Context, email string) ([]domain.Task, error) {
	ids, err := r.client.SMembers(ctx, assigneeKey(email)).Result()
	if err != nil {
		return nil, err
	}
	return r.fetchTasks(ctx, ids)
}

// ListIncomplete filters completed tasks out of the full set; the sweep and
// reminder jobs work from this view.
func (r *taskRepository) ListIncomplete(ctx context.Context) ([]domain.Task, error) {
	tasks, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	incomplete := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == domain.TaskStatusComplete {
			continue
		}
		incomplete = append(incomplete, task)
	}
	return incomplete, nil
}

// UpdateStatus is the partial update used by the expiry sweep; only status
// and updatedAt change, other fields keep their stored values.
func (r *taskRepository) UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus, updatedAt int64) error {
	exists, err := r.client.Exists(ctx, taskKey(taskID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrTaskNotFound
	}
	return r.client.HSet(ctx, taskKey(taskID), map[string]string{
		fieldStatus:    string(status),
		fieldUpdatedAt: strconv.FormatInt(updatedAt, 10),
	}).Err()
}

func (r *taskRepository) fetchTasks(ctx context.Context, ids []string) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		fields, err := r.client.HGetAll(ctx, taskKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// stale index entry, record was removed out of band
			continue
		}
		task, err := taskFromFields(fields)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}
