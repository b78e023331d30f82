package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerRunning is returned when registering a task after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrTaskNotFound is returned when no task has the requested name
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTask is returned for tasks without a name, interval or run func
	ErrInvalidTask = errors.New("invalid task")
)
