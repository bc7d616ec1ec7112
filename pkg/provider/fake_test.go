package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/errands/pkg/codec"
	"github.com/harrisonrobin/errands/pkg/model"
	"github.com/harrisonrobin/errands/pkg/remote"
)

var errUnreachable = errors.New("dial tcp: connection refused")

var testClock = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func testCodec() *codec.Codec {
	return &codec.Codec{Now: func() time.Time { return testClock }}
}

// fakeDir is an in-memory remote.Directory.
type fakeDir struct {
	lists   []remote.TaskList
	records []remote.Record

	listTasksErr  error
	listListsErr  error
	createListErr error
	createErr     error

	// serverIDs makes CreateTask assign its own uid, like Google Tasks.
	serverIDs bool
	// dropAfterFirstList empties the list after the first ListTasks call.
	dropAfterFirstList bool

	listCalls   int
	createLists int
	creates     int
	updates     int
}

func (d *fakeDir) ListTaskLists(context.Context) ([]remote.TaskList, error) {
	if d.listListsErr != nil {
		return nil, d.listListsErr
	}
	return slices.Clone(d.lists), nil
}

func (d *fakeDir) CreateTaskList(_ context.Context, name string) (remote.TaskList, error) {
	if d.createListErr != nil {
		return remote.TaskList{}, d.createListErr
	}
	d.createLists++
	l := remote.TaskList{ID: fmt.Sprintf("/lists/%d/", len(d.lists)+1), Name: name}
	d.lists = append(d.lists, l)
	return l, nil
}

func (d *fakeDir) ListTasks(_ context.Context, list remote.TaskList) ([]remote.Record, error) {
	if d.listTasksErr != nil {
		return nil, d.listTasksErr
	}
	d.listCalls++
	out := slices.Clone(d.records)
	if d.dropAfterFirstList && d.listCalls == 1 {
		d.records = nil
	}
	return out, nil
}

func (d *fakeDir) CreateTask(_ context.Context, list remote.TaskList, body string) (remote.Record, error) {
	if d.createErr != nil {
		return remote.Record{}, d.createErr
	}
	d.creates++
	if d.serverIDs {
		f, err := codec.Decode(body)
		if err != nil {
			return remote.Record{}, err
		}
		f.UID = fmt.Sprintf("srv-%d", d.creates)
		if body, err = testCodec().Encode(f); err != nil {
			return remote.Record{}, err
		}
	}
	rec := remote.Record{List: list.ID, ID: fmt.Sprintf("%sobj-%d.ics", list.ID, d.creates), Body: body}
	d.records = append(d.records, rec)
	return rec, nil
}

func (d *fakeDir) UpdateTask(_ context.Context, rec remote.Record) error {
	for i := range d.records {
		if d.records[i].ID == rec.ID {
			d.updates++
			d.records[i] = rec
			return nil
		}
	}
	return fmt.Errorf("404 not found: %s", rec.ID)
}

// seed adds a remote record for f.
func (d *fakeDir) seed(t *testing.T, f codec.Fields) {
	t.Helper()
	body, err := testCodec().Encode(f)
	require.NoError(t, err)
	d.records = append(d.records, remote.Record{
		List: "/lists/1/",
		ID:   fmt.Sprintf("/lists/1/%s.ics", f.UID),
		Body: body,
	})
}

func (d *fakeDir) decoded(t *testing.T) []codec.Fields {
	t.Helper()
	var out []codec.Fields
	for _, rec := range d.records {
		f, err := codec.Decode(rec.Body)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func (d *fakeDir) byUID(t *testing.T, uid string) (codec.Fields, bool) {
	t.Helper()
	for _, f := range d.decoded(t) {
		if f.UID == uid {
			return f, true
		}
	}
	return codec.Fields{}, false
}

// memStore is an in-memory Store counting full writes.
type memStore struct {
	data   model.Data
	sets   int
	getErr error
}

func newMemStore(tasks ...model.Task) *memStore {
	return &memStore{data: model.Data{Tasks: tasks}}
}

func (s *memStore) Get() (model.Data, error) {
	if s.getErr != nil {
		return model.Data{}, s.getErr
	}
	return model.Data{Tasks: slices.Clone(s.data.Tasks)}, nil
}

func (s *memStore) Set(data model.Data) error {
	s.sets++
	s.data = model.Data{Tasks: slices.Clone(data.Tasks)}
	return nil
}

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func uidSequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("uid-%d", n)
	}
}

func newTestProvider(dir *fakeDir, st Store, binding Binding, logger *slog.Logger) *Provider {
	if binding == nil {
		binding = NextcloudBinding{}
	}
	if logger == nil {
		logger, _ = testLogger()
	}
	return New(Options{
		Name:    "test",
		Enabled: true,
		Dial: func(context.Context) (remote.Directory, error) {
			return dir, nil
		},
		Store:   st,
		Binding: binding,
		Codec:   testCodec(),
		NewUID:  uidSequence(),
		Logger:  logger,
	})
}

func connected(t *testing.T, dir *fakeDir, st Store, binding Binding, logger *slog.Logger) *Provider {
	t.Helper()
	p := newTestProvider(dir, st, binding, logger)
	require.NoError(t, p.Connect(context.Background()))
	require.Equal(t, StateConnected, p.State())
	return p
}
