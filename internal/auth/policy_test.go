package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

func TestAuthorize(t *testing.T) {
	admin := &Claims{Email: "admin@example.com", Role: domain.RoleAdmin}
	worker := &Claims{Email: "worker@example.com", Role: domain.RoleUser}
	ownTask := &domain.Task{TaskID: "t1", AssignedUserEmail: "worker@example.com"}
	otherTask := &domain.Task{TaskID: "t2", AssignedUserEmail: "someone@example.com"}

	tests := []struct {
		name       string
		op         Operation
		claims     *Claims
		task       *domain.Task
		wantStatus int
	}{
		{"nil claims unauthorized", OpGetTask, nil, ownTask, 401},
		{"empty email unauthorized", OpGetTask, &Claims{}, ownTask, 401},
		{"admin creates tasks", OpCreateTask, admin, nil, 0},
		{"user cannot create tasks", OpCreateTask, worker, nil, 403},
		{"admin creates users", OpCreateUser, admin, nil, 0},
		{"user cannot create users", OpCreateUser, worker, nil, 403},
		{"admin closes", OpCloseTask, admin, nil, 0},
		{"user cannot close", OpCloseTask, worker, nil, 403},
		{"admin reassigns", OpReassignTask, admin, nil, 0},
		{"user cannot reassign", OpReassignTask, worker, nil, 403},
		{"admin reads any task", OpGetTask, admin, otherTask, 0},
		{"assignee reads own task", OpGetTask, worker, ownTask, 0},
		{"assignee cannot read others", OpGetTask, worker, otherTask, 403},
		{"assignee updates own task", OpUpdateTask, worker, ownTask, 0},
		{"assignee cannot update others", OpUpdateTask, worker, otherTask, 403},
		{"update without task forbidden for user", OpUpdateTask, worker, nil, 403},
		{"unknown operation forbidden", Operation("task:destroy"), admin, nil, 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.op, tt.claims, tt.task)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantStatus, apperrors.ToDomainError(err).HTTPStatus)
		})
	}
}
