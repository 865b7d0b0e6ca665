package repository

import (
	"strconv"

	"github.com/spec-kit/task-service/internal/domain"
)

// Persisted field names are part of the record contract; see taskFromFields.
const (
	fieldTaskID            = "taskId"
	fieldName              = "name"
	fieldDescription       = "description"
	fieldStatus            = "status"
	fieldDeadline          = "deadline"
	fieldResponsibility    = "responsibility"
	fieldAssignedUserEmail = "assignedUserEmail"
	fieldUserComment       = "userComment"
	fieldAdminComment      = "adminComment"
	fieldIsClosed          = "isClosed"
	fieldClosedAt          = "closedAt"
	fieldCompletedAt       = "completedAt"
	fieldCreatedBy         = "createdBy"
	fieldCreatedAt         = "createdAt"
	fieldUpdatedAt         = "updatedAt"
)

// taskToFields flattens a task into the string field map stored per record.
// Optional attributes are omitted when unset so taskFromFields can restore
// them as nil.
func taskToFields(task *domain.Task) map[string]string {
	fields := map[string]string{
		fieldTaskID:    task.TaskID,
		fieldStatus:    string(task.Status),
		fieldIsClosed:  strconv.FormatBool(task.IsClosed),
		fieldCreatedAt: strconv.FormatInt(task.CreatedAt, 10),
		fieldUpdatedAt: strconv.FormatInt(task.UpdatedAt, 10),
	}
	putString(fields, fieldName, task.Name)
	putString(fields, fieldDescription, task.Description)
	putString(fields, fieldResponsibility, task.Responsibility)
	putString(fields, fieldAssignedUserEmail, task.AssignedUserEmail)
	putString(fields, fieldUserComment, task.UserComment)
	putString(fields, fieldAdminComment, task.AdminComment)
	putString(fields, fieldCreatedBy, task.CreatedBy)
	putMillis(fields, fieldDeadline, task.Deadline)
	putMillis(fields, fieldClosedAt, task.ClosedAt)
	putMillis(fields, fieldCompletedAt, task.CompletedAt)
	return fields
}

// taskFromFields is the inverse of taskToFields.
func taskFromFields(fields map[string]string) (*domain.Task, error) {
	if len(fields) == 0 {
		return nil, ErrTaskNotFound
	}

	task := &domain.Task{
		TaskID:            fields[fieldTaskID],
		Name:              fields[fieldName],
		Description:       fields[fieldDescription],
		Status:            domain.TaskStatus(fields[fieldStatus]),
		Responsibility:    fields[fieldResponsibility],
		AssignedUserEmail: fields[fieldAssignedUserEmail],
		UserComment:       fields[fieldUserComment],
		AdminComment:      fields[fieldAdminComment],
		CreatedBy:         fields[fieldCreatedBy],
	}
	task.IsClosed = fields[fieldIsClosed] == "true"

	var err error
	if task.CreatedAt, err = parseMillisField(fields, fieldCreatedAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseMillisField(fields, fieldUpdatedAt); err != nil {
		return nil, err
	}
	if task.Deadline, err = parseOptionalMillis(fields, fieldDeadline); err != nil {
		return nil, err
	}
	if task.ClosedAt, err = parseOptionalMillis(fields, fieldClosedAt); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseOptionalMillis(fields, fieldCompletedAt); err != nil {
		return nil, err
	}
	return task, nil
}

func putString(fields map[string]string, key, val string) {
	if val != "" {
		fields[key] = val
	}
}

func putMillis(fields map[string]string, key string, val *int64) {
	if val != nil {
		fields[key] = strconv.FormatInt(*val, 10)
	}
}

func parseMillisField(fields map[string]string, key string) (int64, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseOptionalMillis(fields map[string]string, key string) (*int64, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
