package domain

import (
	"errors"
	"strings"
)

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusOpen     TaskStatus = "OPEN"
	TaskStatusComplete TaskStatus = "COMPLETE"
	TaskStatusClosed   TaskStatus = "CLOSED"
	TaskStatusExpired  TaskStatus = "EXPIRED"
)

// ErrUnknownStatus is returned when a status string cannot be parsed.
var ErrUnknownStatus = errors.New("unknown task status")

// ParseStatus normalizes a caller-supplied status string. Input is
// case-insensitive and both "complete" and "completed" map to COMPLETE.
func ParseStatus(raw string) (TaskStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OPEN":
		return TaskStatusOpen, nil
	case "COMPLETE", "COMPLETED":
		return TaskStatusComplete, nil
	case "CLOSED":
		return TaskStatusClosed, nil
	case "EXPIRED":
		return TaskStatusExpired, nil
	}
	return "", ErrUnknownStatus
}

// Task is the central aggregate. Timestamps are epoch milliseconds; optional
// ones are pointers so absence survives the record codec round trip.
type Task struct {
	TaskID            string
	Name              string
	Description       string
	Status            TaskStatus
	Deadline          *int64
	Responsibility    string
	AssignedUserEmail string
	UserComment       string
	AdminComment      string
	IsClosed          bool
	ClosedAt          *int64
	CompletedAt       *int64
	CreatedBy         string
	CreatedAt         int64
	UpdatedAt         int64
}
