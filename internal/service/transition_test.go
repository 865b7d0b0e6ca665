package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

func adminClaims() *auth.Claims {
	return &auth.Claims{Email: "admin@example.com", Role: domain.RoleAdmin}
}

func userClaims(email string) *auth.Claims {
	return &auth.Claims{Email: email, Role: domain.RoleUser}
}

func openTask(assignee string) domain.Task {
	return domain.Task{
		TaskID:            "task-1",
		Name:              "Patch firewall",
		Description:       "Apply vendor patch",
		Status:            domain.TaskStatusOpen,
		Responsibility:    "security",
		AssignedUserEmail: assignee,
		CreatedBy:         "admin@example.com",
		CreatedAt:         1000,
		UpdatedAt:         1000,
	}
}

func strPtr(s string) *string { return &s }

func TestApplyUpdate_AssigneeCompletesTask(t *testing.T) {
	task := openTask("worker@example.com")
	now := int64(5000)

	updated, notifications, err := applyUpdate(task, userClaims("worker@example.com"), TaskPatch{
		Status:      strPtr("complete"),
		UserComment: strPtr("done, rebooted twice"),
	}, now)

	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusComplete, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, now, *updated.CompletedAt)
	assert.Equal(t, "done, rebooted twice", updated.UserComment)
	assert.Equal(t, now, updated.UpdatedAt)

	require.Len(t, notifications, 1)
	assert.Equal(t, NotificationCompletion, notifications[0].Kind)
	assert.Equal(t, domain.RoleAdmin, notifications[0].Attributes["role"])
}

func TestApplyUpdate_CompletedAtTracksStatus(t *testing.T) {
	completedAt := int64(2000)
	task := openTask("worker@example.com")
	task.Status = domain.TaskStatusComplete
	task.CompletedAt = &completedAt

	updated, _, err := applyUpdate(task, adminClaims(), TaskPatch{Status: strPtr("OPEN")}, 3000)

	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOpen, updated.Status)
	assert.Nil(t, updated.CompletedAt, "leaving COMPLETE must clear completedAt")
}

func TestApplyUpdate_NonAssigneeForbidden(t *testing.T) {
	task := openTask("worker@example.com")

	_, _, err := applyUpdate(task, userClaims("other@example.com"), TaskPatch{
		Status: strPtr("complete"),
	}, 5000)

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, 403, domainErr.HTTPStatus)
}

func TestApplyUpdate_NonAdminCannotTouchAdminFields(t *testing.T) {
	task := openTask("worker@example.com")
	claims := userClaims("worker@example.com")

	patches := []TaskPatch{
		{Name: strPtr("renamed")},
		{Description: strPtr("changed")},
		{AdminComment: strPtr("sneaky")},
		{AssignedUserEmail: strPtr("someone@example.com")},
	}
	for _, patch := range patches {
		_, _, err := applyUpdate(task, claims, patch, 5000)
		require.Error(t, err)
		assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
	}
}

func TestApplyUpdate_InvalidStatusRejected(t *testing.T) {
	task := openTask("worker@example.com")

	_, _, err := applyUpdate(task, adminClaims(), TaskPatch{Status: strPtr("archived")}, 5000)

	require.Error(t, err)
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
}

func TestApplyUpdate_ReassignmentRequiresClosed(t *testing.T) {
	task := openTask("worker@example.com")

	_, _, err := applyUpdate(task, adminClaims(), TaskPatch{
		AssignedUserEmail: strPtr("other@example.com"),
	}, 5000)

	require.Error(t, err)
	assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
}

func TestApplyUpdate_ReassignmentReopensClosedTask(t *testing.T) {
	closedAt := int64(2000)
	task := openTask("worker@example.com")
	task.Status = domain.TaskStatusClosed
	task.IsClosed = true
	task.ClosedAt = &closedAt

	updated, notifications, err := applyUpdate(task, adminClaims(), TaskPatch{
		AssignedUserEmail: strPtr("fresh@example.com"),
	}, 5000)

	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", updated.AssignedUserEmail)
	assert.Equal(t, domain.TaskStatusOpen, updated.Status)
	assert.False(t, updated.IsClosed)
	assert.Nil(t, updated.ClosedAt)
	assert.Nil(t, updated.CompletedAt)

	require.Len(t, notifications, 1)
	assert.Equal(t, NotificationAssignment, notifications[0].Kind)
	assert.Equal(t, "fresh@example.com", notifications[0].RecipientEmail)
}

func TestApplyUpdate_SameAssigneeIsNotReassignment(t *testing.T) {
	task := openTask("worker@example.com")

	updated, notifications, err := applyUpdate(task, adminClaims(), TaskPatch{
		AssignedUserEmail: strPtr("worker@example.com"),
		Name:              strPtr("Patch firewall v2"),
	}, 5000)

	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOpen, updated.Status)
	assert.Equal(t, "Patch firewall v2", updated.Name)
	assert.Empty(t, notifications)
}

func TestCloseTask_Postconditions(t *testing.T) {
	task := openTask("worker@example.com")
	now := int64(9000)

	updated, notification := closeTask(task, "duplicate of task-7", now)

	assert.Equal(t, domain.TaskStatusClosed, updated.Status)
	assert.True(t, updated.IsClosed)
	require.NotNil(t, updated.ClosedAt)
	assert.Equal(t, now, *updated.ClosedAt)
	assert.Equal(t, "duplicate of task-7", updated.AdminComment)
	assert.Equal(t, now, updated.UpdatedAt)

	assert.Equal(t, NotificationClosure, notification.Kind)
	assert.Equal(t, "worker@example.com", notification.RecipientEmail)
	assert.Equal(t, "true", notification.Attributes["isClosed"])
}

func TestReassignTask_RejectsNonClosed(t *testing.T) {
	for _, status := range []domain.TaskStatus{domain.TaskStatusOpen, domain.TaskStatusComplete, domain.TaskStatusExpired} {
		task := openTask("worker@example.com")
		task.Status = status

		_, _, err := reassignTask(task, "other@example.com", 5000)

		require.Error(t, err, "status %s", status)
		assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
	}
}

func TestReassignTask_ReopensAndNotifies(t *testing.T) {
	closedAt := int64(2000)
	task := openTask("worker@example.com")
	task.Status = domain.TaskStatusClosed
	task.IsClosed = true
	task.ClosedAt = &closedAt

	updated, notification, err := reassignTask(task, "fresh@example.com", 5000)

	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", updated.AssignedUserEmail)
	assert.Equal(t, domain.TaskStatusOpen, updated.Status)
	assert.False(t, updated.IsClosed)
	assert.Nil(t, updated.ClosedAt)
	assert.Equal(t, NotificationAssignment, notification.Kind)
	assert.Equal(t, "fresh@example.com", notification.RecipientEmail)
}
