package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	app.Post("/users", cfg.AuthMiddleware.Handle, cfg.Users.CreateUser)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle)
	tasks.Post("/", cfg.Tasks.CreateTask)
	tasks.Get("/", cfg.Tasks.ListTasks)
	tasks.Post("/deadline-reminders", cfg.Tasks.SendDeadlineReminders)
	tasks.Get("/:taskId", cfg.Tasks.GetTask)
	tasks.Put("/:taskId", cfg.Tasks.UpdateTask)
	tasks.Post("/:taskId/close", cfg.Tasks.CloseTask)
	tasks.Post("/:taskId/reassign", cfg.Tasks.ReassignTask)
}
