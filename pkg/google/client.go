package google

import (
	"context"

	"github.com/harrisonrobin/errands/pkg/auth"
	"github.com/harrisonrobin/errands/pkg/codec"
	"google.golang.org/api/tasks/v1"
)

// Dial authenticates with the cached OAuth token and returns a Google Tasks
// directory.
func Dial(ctx context.Context) (*TasksClient, error) {
	srv, err := auth.GetTasksService(ctx)
	if err != nil {
		return nil, err
	}
	return NewTasksClient(srv, codec.New()), nil
}

// NewTasksClient wraps an existing service; bodies are rendered with c.
func NewTasksClient(srv *tasks.Service, c *codec.Codec) *TasksClient {
	return &TasksClient{srv: srv, codec: c}
}
