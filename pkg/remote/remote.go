// Package remote defines the task directory contract the sync providers
// consume. Implementations live in pkg/nextcloud and pkg/google.
package remote

import "context"

// TaskList addresses one named collection of tasks on the server.
type TaskList struct {
	ID   string
	Name string
}

// Record is a remote task as stored on the server. Body is an iCalendar
// text that pkg/codec understands; ID and ETag address it for updates.
type Record struct {
	List string
	ID   string
	ETag string
	Body string
}

// Directory is a live session against a remote task server.
type Directory interface {
	ListTaskLists(ctx context.Context) ([]TaskList, error)
	CreateTaskList(ctx context.Context, name string) (TaskList, error)
	ListTasks(ctx context.Context, list TaskList) ([]Record, error)
	CreateTask(ctx context.Context, list TaskList, body string) (Record, error)
	UpdateTask(ctx context.Context, rec Record) error
}
