package dto

import "github.com/spec-kit/task-service/internal/domain"

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Responsibility    string `json:"responsibility"`
	AssignedUserEmail string `json:"assignedUserEmail"`
	Deadline          *int64 `json:"deadline"`
}

// UpdateTaskRequest payload; absent fields keep their stored values.
type UpdateTaskRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	Status            *string `json:"status"`
	UserComment       *string `json:"userComment"`
	AdminComment      *string `json:"adminComment"`
	AssignedUserEmail *string `json:"assignedUserEmail"`
	Deadline          *int64  `json:"deadline"`
}

// CloseTaskRequest payload.
type CloseTaskRequest struct {
	AdminComment string `json:"adminComment"`
}

// ReassignTaskRequest payload.
type ReassignTaskRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// TaskResponse mirrors the persisted record layout.
type TaskResponse struct {
	TaskID            string            `json:"taskId"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Status            domain.TaskStatus `json:"status"`
	Deadline          *int64            `json:"deadline,omitempty"`
	Responsibility    string            `json:"responsibility"`
	AssignedUserEmail string            `json:"assignedUserEmail"`
	UserComment       string            `json:"userComment,omitempty"`
	AdminComment      string            `json:"adminComment,omitempty"`
	IsClosed          bool              `json:"isClosed"`
	ClosedAt          *int64            `json:"closedAt,omitempty"`
	CompletedAt       *int64            `json:"completedAt,omitempty"`
	CreatedBy         string            `json:"createdBy"`
	CreatedAt         int64             `json:"createdAt"`
	UpdatedAt         int64             `json:"updatedAt"`
}

// FromTask maps a domain task onto the response shape.
func FromTask(task *domain.Task) TaskResponse {
	return TaskResponse{
		TaskID:            task.TaskID,
		Name:              task.Name,
		Description:       task.Description,
		Status:            task.Status,
		Deadline:          task.Deadline,
		Responsibility:    task.Responsibility,
		AssignedUserEmail: task.AssignedUserEmail,
		UserComment:       task.UserComment,
		AdminComment:      task.AdminComment,
		IsClosed:          task.IsClosed,
		ClosedAt:          task.ClosedAt,
		CompletedAt:       task.CompletedAt,
		CreatedBy:         task.CreatedBy,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
}
