package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/domain"
)

func TestTaskCodec_RoundTrip(t *testing.T) {
	deadline := int64(1700000000000)
	completedAt := int64(1700000100000)
	task := &domain.Task{
		TaskID:            "task-1",
		Name:              "Rotate certificates",
		Description:       "prod edge nodes",
		Status:            domain.TaskStatusComplete,
		Deadline:          &deadline,
		Responsibility:    "platform",
		AssignedUserEmail: "worker@example.com",
		UserComment:       "rotated, verified handshake",
		CompletedAt:       &completedAt,
		CreatedBy:         "admin@example.com",
		CreatedAt:         1699999000000,
		UpdatedAt:         1700000100000,
	}

	got, err := taskFromFields(taskToFields(task))

	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestTaskCodec_UnsetOptionalsStayNil(t *testing.T) {
	task := &domain.Task{
		TaskID:    "task-2",
		Name:      "Triage backlog",
		Status:    domain.TaskStatusOpen,
		CreatedAt: 1000,
		UpdatedAt: 1000,
	}

	fields := taskToFields(task)
	assert.NotContains(t, fields, fieldDeadline)
	assert.NotContains(t, fields, fieldClosedAt)
	assert.NotContains(t, fields, fieldCompletedAt)

	got, err := taskFromFields(fields)
	require.NoError(t, err)
	assert.Nil(t, got.Deadline)
	assert.Nil(t, got.ClosedAt)
	assert.Nil(t, got.CompletedAt)
	assert.False(t, got.IsClosed)
}

func TestTaskCodec_EmptyRecordIsNotFound(t *testing.T) {
	_, err := taskFromFields(map[string]string{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskCodec_MalformedTimestamp(t *testing.T) {
	fields := taskToFields(&domain.Task{TaskID: "task-3", CreatedAt: 1, UpdatedAt: 1})
	fields[fieldDeadline] = "not-a-number"

	_, err := taskFromFields(fields)
	assert.Error(t, err)
}
