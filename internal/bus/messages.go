package bus

import "github.com/google/uuid"

// TaskQueuedMessage is the fan-out payload enqueued when a task is created or
// reassigned; the assignment worker resolves the assignee and notifies them.
type TaskQueuedMessage struct {
	TaskID string `json:"taskId"`
}

// OnboardingMessage starts the follow-up work for a freshly created user.
type OnboardingMessage struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func newMessageID() string {
	return uuid.NewString()
}
