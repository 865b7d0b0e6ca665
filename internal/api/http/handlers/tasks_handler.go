package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/internal/worker"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	service   *service.TaskService
	reminders *worker.DeadlineNotifier
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService, reminders *worker.DeadlineNotifier) *TasksHandler {
	return &TasksHandler{service: taskService, reminders: reminders}
}

// CreateTask POST /tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TaskCreateInput{
		Name:              req.Name,
		Description:       req.Description,
		Responsibility:    req.Responsibility,
		AssignedUserEmail: req.AssignedUserEmail,
		Deadline:          req.Deadline,
	}
	task, err := h.service.Create(c.UserContext(), claims, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromTask(task))
}

// ListTasks GET /tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tasks, err := h.service.List(c.UserContext(), claims)
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, dto.FromTask(&tasks[i]))
	}
	return c.JSON(fiber.Map{"tasks": items})
}

// GetTask GET /tasks/:taskId.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	task, err := h.service.Get(c.UserContext(), claims, c.Params("taskId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTask(task))
}

// UpdateTask PUT /tasks/:taskId.
func (h *TasksHandler) UpdateTask(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.TaskPatch{
		Name:              req.Name,
		Description:       req.Description,
		Status:            req.Status,
		UserComment:       req.UserComment,
		AdminComment:      req.AdminComment,
		AssignedUserEmail: req.AssignedUserEmail,
		Deadline:          req.Deadline,
	}
	task, err := h.service.Update(c.UserContext(), claims, c.Params("taskId"), patch)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTask(task))
}

// CloseTask POST /tasks/:taskId/close.
func (h *TasksHandler) CloseTask(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CloseTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.Close(c.UserContext(), claims, c.Params("taskId"), req.AdminComment)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTask(task))
}

// ReassignTask POST /tasks/:taskId/reassign.
func (h *TasksHandler) ReassignTask(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReassignTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.Reassign(c.UserContext(), claims, c.Params("taskId"), req.AssignedTo)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTask(task))
}

// SendDeadlineReminders POST /tasks/deadline-reminders. Admin-triggered scan
// for tasks approaching their deadline.
func (h *TasksHandler) SendDeadlineReminders(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !claims.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	sent, err := h.reminders.NotifyOnce(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "deadline reminders dispatched", "sent": sent})
}
