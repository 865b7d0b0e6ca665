package service

import (
	"fmt"

	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// NotificationKind selects the topic a pending notification goes to.
type NotificationKind string

const (
	NotificationAssignment NotificationKind = "assignment"
	NotificationCompletion NotificationKind = "completion"
	NotificationClosure    NotificationKind = "closure"
	NotificationExpiry     NotificationKind = "expiry"
	NotificationDeadline   NotificationKind = "deadline"
)

// Notification is a pending notification produced by a state transition.
// RecipientEmail is resolved to a userId attribute at publish time; when it
// is empty the notification carries only the role attribute for filtering.
type Notification struct {
	Kind           NotificationKind
	RecipientEmail string
	Subject        string
	Message        string
	Attributes     map[string]string
}

// TaskPatch is a partial update; nil fields keep their stored values. Status
// carries the raw caller string so parsing failures surface as 400.
type TaskPatch struct {
	Name              *string
	Description       *string
	Status            *string
	UserComment       *string
	AdminComment      *string
	AssignedUserEmail *string
	Deadline          *int64
}

func (p TaskPatch) hasAdminOnlyFields() bool {
	return p.Name != nil || p.Description != nil || p.AdminComment != nil ||
		p.AssignedUserEmail != nil || p.Deadline != nil
}

// applyUpdate enforces the role-gated field merge and computes derived
// fields. It returns the updated task and the notifications the mutation
// requires; the stored record is untouched when an error is returned.
func applyUpdate(task domain.Task, claims *auth.Claims, patch TaskPatch, now int64) (domain.Task, []Notification, error) {
	if err := auth.Authorize(auth.OpUpdateTask, claims, &task); err != nil {
		return task, nil, err
	}
	if !claims.IsAdmin() && patch.hasAdminOnlyFields() {
		return task, nil, apperrors.NewForbidden("only status and userComment can be changed by the assignee")
	}

	var newStatus *domain.TaskStatus
	if patch.Status != nil {
		parsed, err := domain.ParseStatus(*patch.Status)
		if err != nil {
			return task, nil, apperrors.NewValidationError("invalid status value", map[string]any{"status": *patch.Status})
		}
		newStatus = &parsed
	}

	updated := task
	var notifications []Notification

	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.UserComment != nil {
		updated.UserComment = *patch.UserComment
	}
	if patch.AdminComment != nil {
		updated.AdminComment = *patch.AdminComment
	}
	if patch.Deadline != nil {
		updated.Deadline = patch.Deadline
	}

	reassigned := false
	if patch.AssignedUserEmail != nil && *patch.AssignedUserEmail != task.AssignedUserEmail {
		if task.Status != domain.TaskStatusClosed {
			return task, nil, apperrors.NewForbidden("only closed tasks can be reassigned")
		}
		updated.AssignedUserEmail = *patch.AssignedUserEmail
		reassigned = true
	}

	if newStatus != nil {
		updated.Status = *newStatus
	}

	if reassigned {
		// reassignment reopens the task regardless of any status in the patch
		updated.Status = domain.TaskStatusOpen
		updated.IsClosed = false
		updated.ClosedAt = nil
		updated.CompletedAt = nil
		notifications = append(notifications, assignmentNotification(updated))
	} else if newStatus != nil {
		switch {
		case *newStatus == domain.TaskStatusComplete && task.Status != domain.TaskStatusComplete:
			updated.CompletedAt = &now
			notifications = append(notifications, completionNotification(updated))
		case *newStatus != domain.TaskStatusComplete:
			updated.CompletedAt = nil
		}
	}

	updated.UpdatedAt = now
	return updated, notifications, nil
}

// closeTask applies the terminal close transition. Authorization happens at
// the call site; the assignee at close time is the notification recipient.
func closeTask(task domain.Task, adminComment string, now int64) (domain.Task, Notification) {
	updated := task
	updated.Status = domain.TaskStatusClosed
	updated.IsClosed = true
	updated.ClosedAt = &now
	updated.AdminComment = adminComment
	updated.CompletedAt = nil
	updated.UpdatedAt = now

	notification := Notification{
		Kind:           NotificationClosure,
		RecipientEmail: task.AssignedUserEmail,
		Subject:        "Task Closed: " + task.Name,
		Message:        fmt.Sprintf("Task %q has been closed. Comment: %s", task.Name, adminComment),
		Attributes: map[string]string{
			"taskId":   task.TaskID,
			"taskName": task.Name,
			"isClosed": "true",
		},
	}
	return updated, notification
}

// reassignTask moves a closed task to a new assignee and reopens it.
func reassignTask(task domain.Task, newAssigneeEmail string, now int64) (domain.Task, Notification, error) {
	if task.Status != domain.TaskStatusClosed {
		return task, Notification{}, apperrors.NewForbidden("only closed tasks can be reassigned")
	}

	updated := task
	updated.AssignedUserEmail = newAssigneeEmail
	updated.Status = domain.TaskStatusOpen
	updated.IsClosed = false
	updated.ClosedAt = nil
	updated.CompletedAt = nil
	updated.UpdatedAt = now

	return updated, assignmentNotification(updated), nil
}

func assignmentNotification(task domain.Task) Notification {
	return Notification{
		Kind:           NotificationAssignment,
		RecipientEmail: task.AssignedUserEmail,
		Message:        fmt.Sprintf("You have been reassigned to task %s", task.Name),
		Attributes:     map[string]string{"taskId": task.TaskID},
	}
}

func completionNotification(task domain.Task) Notification {
	return Notification{
		Kind:    NotificationCompletion,
		Message: fmt.Sprintf("Task %q was completed by %s. Comment: %s", task.Name, task.AssignedUserEmail, task.UserComment),
		Attributes: map[string]string{
			"role":        domain.RoleAdmin,
			"taskId":      task.TaskID,
			"completedBy": task.AssignedUserEmail,
		},
	}
}
