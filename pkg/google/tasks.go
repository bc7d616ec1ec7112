package google

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/harrisonrobin/errands/pkg/codec"
	"github.com/harrisonrobin/errands/pkg/remote"
	"google.golang.org/api/tasks/v1"
)

const (
	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"

	// colorNote is the notes line carrying the Errands colour, since Google
	// tasks have no colour of their own.
	colorNote = "errands-color:"

	pageSize = 100
)

var _ remote.Directory = (*TasksClient)(nil)

// TasksClient exposes Google Tasks as a remote.Directory. Records carry a
// VTODO body built from the Google task, with the Google id as UID.
type TasksClient struct {
	srv   *tasks.Service
	codec *codec.Codec
}

func (c *TasksClient) ListTaskLists(ctx context.Context) ([]remote.TaskList, error) {
	var lists []remote.TaskList
	pageToken := ""
	for {
		call := c.srv.Tasklists.List().MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve task lists: %w", err)
		}
		for _, item := range resp.Items {
			lists = append(lists, remote.TaskList{ID: item.Id, Name: item.Title})
		}
		if resp.NextPageToken == "" {
			return lists, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (c *TasksClient) CreateTaskList(ctx context.Context, name string) (remote.TaskList, error) {
	list, err := c.srv.Tasklists.Insert(&tasks.TaskList{Title: name}).Context(ctx).Do()
	if err != nil {
		return remote.TaskList{}, fmt.Errorf("unable to create task list %q: %w", name, err)
	}
	return remote.TaskList{ID: list.Id, Name: list.Title}, nil
}

// ListTasks returns every task of the list, including completed and hidden
// ones.
func (c *TasksClient) ListTasks(ctx context.Context, list remote.TaskList) ([]remote.Record, error) {
	var records []remote.Record
	pageToken := ""
	for {
		call := c.srv.Tasks.List(list.ID).
			ShowCompleted(true).
			ShowHidden(true).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve tasks of %s: %w", list.ID, err)
		}
		for _, item := range resp.Items {
			rec, err := c.record(list.ID, item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if resp.NextPageToken == "" {
			return records, nil
		}
		pageToken = resp.NextPageToken
	}
}

// CreateTask inserts the task described by body. Google assigns the id, so
// the returned record's UID differs from the one in body.
func (c *TasksClient) CreateTask(ctx context.Context, list remote.TaskList, body string) (remote.Record, error) {
	f, err := codec.Decode(body)
	if err != nil {
		return remote.Record{}, err
	}

	call := c.srv.Tasks.Insert(list.ID, TaskFromFields(f)).Context(ctx)
	if f.RelatedTo != "" {
		call = call.Parent(f.RelatedTo)
	}
	created, err := call.Do()
	if err != nil {
		return remote.Record{}, fmt.Errorf("unable to create task: %w", err)
	}
	return c.record(list.ID, created)
}

// UpdateTask replaces title, notes and status. Parent changes are not moved.
func (c *TasksClient) UpdateTask(ctx context.Context, rec remote.Record) error {
	f, err := codec.Decode(rec.Body)
	if err != nil {
		return err
	}
	task := TaskFromFields(f)
	task.Id = rec.ID
	task.Etag = rec.ETag
	if _, err := c.srv.Tasks.Update(rec.List, rec.ID, task).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to update task %s: %w", rec.ID, err)
	}
	return nil
}

func (c *TasksClient) record(listID string, t *tasks.Task) (remote.Record, error) {
	body, err := c.codec.Encode(FieldsFromTask(t))
	if err != nil {
		return remote.Record{}, fmt.Errorf("unable to encode task %s: %w", t.Id, err)
	}
	return remote.Record{List: listID, ID: t.Id, ETag: t.Etag, Body: body}, nil
}

// FieldsFromTask maps a Google task onto codec fields.
func FieldsFromTask(t *tasks.Task) codec.Fields {
	f := codec.Fields{
		UID:       t.Id,
		Summary:   t.Title,
		RelatedTo: t.Parent,
		Color:     ColorFromNotes(t.Notes),
	}
	if t.Status == statusCompleted {
		f.Status = codec.StatusCompleted
	}
	return f
}

// TaskFromFields maps codec fields onto a Google task without id or parent.
func TaskFromFields(f codec.Fields) *tasks.Task {
	t := &tasks.Task{
		Title:  f.Summary,
		Status: statusNeedsAction,
	}
	if f.Color != "" {
		t.Notes = colorNote + " " + f.Color
	}
	if f.Completed() {
		t.Status = statusCompleted
	} else {
		t.NullFields = append(t.NullFields, "Completed")
	}
	return t
}

// ColorFromNotes finds the colour line written by TaskFromFields.
func ColorFromNotes(notes string) string {
	sc := bufio.NewScanner(strings.NewReader(notes))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, colorNote); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
