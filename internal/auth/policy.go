package auth

import (
	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// Operation identifies an action checked by the authorization policy.
type Operation string

const (
	OpCreateTask   Operation = "task:create"
	OpGetTask      Operation = "task:get"
	OpUpdateTask   Operation = "task:update"
	OpCloseTask    Operation = "task:close"
	OpReassignTask Operation = "task:reassign"
	OpCreateUser   Operation = "user:create"
)

// Authorize is the single policy gate shared by all handlers. Admins may do
// everything. Non-admins may read or update only tasks assigned to them; the
// ownership check is deliberate, role alone is not enough. For operations
// that act before a task exists (create) task is nil.
func Authorize(op Operation, claims *Claims, task *domain.Task) error {
	if claims == nil || claims.Email == "" {
		return apperrors.NewUnauthorized("missing claims")
	}

	switch op {
	case OpCreateTask:
		if !claims.IsAdmin() {
			return apperrors.NewForbidden("only admin users can create tasks")
		}
	case OpCreateUser:
		if !claims.IsAdmin() {
			return apperrors.NewForbidden("only admin users can create users")
		}
	case OpCloseTask:
		if !claims.IsAdmin() {
			return apperrors.NewForbidden("only administrators can close a task")
		}
	case OpReassignTask:
		if !claims.IsAdmin() {
			return apperrors.NewForbidden("only admins can reassign tasks")
		}
	case OpGetTask, OpUpdateTask:
		if claims.IsAdmin() {
			return nil
		}
		if task == nil || task.AssignedUserEmail != claims.Email {
			return apperrors.NewForbidden("task is not assigned to caller")
		}
	default:
		return apperrors.NewForbidden("unknown operation")
	}
	return nil
}
