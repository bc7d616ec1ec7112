// Package provider runs the reconciliation between the local task store and
// one remote task list per configured sync provider.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/errands/pkg/codec"
	"github.com/harrisonrobin/errands/pkg/model"
	"github.com/harrisonrobin/errands/pkg/remote"
)

// DefaultListName is the remote list dedicated to Errands tasks.
const DefaultListName = "Errands"

// State is the connection state of a provider.
type State int

const (
	StateDisabled State = iota
	StateUnconfigured
	// StateIdle is configured but Connect has not run yet.
	StateIdle
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateUnconfigured:
		return "unconfigured"
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Store is the local task store as seen by a provider.
type Store interface {
	Get() (model.Data, error)
	Set(data model.Data) error
}

// Dialer opens a session against the remote server.
type Dialer func(ctx context.Context) (remote.Directory, error)

type Options struct {
	Name     string
	Enabled  bool
	ListName string
	// Validate checks the credentials; an error leaves the provider
	// unconfigured.
	Validate func() error
	Dial     Dialer
	Store    Store
	Binding  Binding
	Codec    *codec.Codec
	// NewUID generates uids for tasks created remotely.
	NewUID func() string
	Logger *slog.Logger
}

// Provider owns the session to one remote task directory and reconciles the
// local store against its task list. Sync calls are serialised.
type Provider struct {
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	state State
	dir   remote.Directory
	list  remote.TaskList
}

// Change records a task mutated by a cycle.
type Change struct {
	Before model.Task
	After  model.Task
}

// Result summarises one reconciliation cycle.
type Result struct {
	Created        int
	Updated        int
	Unchanged      int
	AssumedDeleted int
	Skipped        int
	Failed         int
	Changes        []Change
	Duration       time.Duration
}

func New(opts Options) *Provider {
	if opts.ListName == "" {
		opts.ListName = DefaultListName
	}
	if opts.Codec == nil {
		opts.Codec = codec.New()
	}
	if opts.NewUID == nil {
		opts.NewUID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Provider{
		opts: opts,
		log:  opts.Logger.With("provider", opts.Name),
	}

	var cfgErr error
	if opts.Validate != nil {
		cfgErr = opts.Validate()
	}

	switch {
	case !opts.Enabled:
		p.state = StateDisabled
		p.log.Debug("sync disabled")
	case cfgErr != nil:
		p.state = StateUnconfigured
		p.log.Error("not all credentials provided", "error", cfgErr)
	default:
		p.state = StateIdle
		p.log.Debug("initialize sync provider")
	}
	return p
}

func (p *Provider) Name() string {
	return p.opts.Name
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// List returns the resolved remote task list; it is zero until connected.
func (p *Provider) List() remote.TaskList {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list
}

// Connect opens the session and resolves the task list, creating it when no
// list has the exact configured name. A failure leaves the provider in
// StateFailed; calling Connect again retries.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateDisabled, StateConnected:
		return nil
	case StateUnconfigured:
		return ErrNotConfigured
	}

	p.state = StateConnecting
	p.log.Info("connecting")

	dir, err := p.opts.Dial(ctx)
	if err != nil {
		return p.fail(fmt.Errorf("%w: %w", ErrConnection, err))
	}
	list, err := p.resolveList(ctx, dir)
	if err != nil {
		return p.fail(err)
	}

	p.dir = dir
	p.list = list
	p.state = StateConnected
	p.log.Info("connected", "list", list.Name)
	return nil
}

func (p *Provider) fail(err error) error {
	p.state = StateFailed
	p.dir = nil
	p.log.Error("can't connect to server", "error", err)
	return err
}

func (p *Provider) resolveList(ctx context.Context, dir remote.Directory) (remote.TaskList, error) {
	lists, err := dir.ListTaskLists(ctx)
	if err != nil {
		return remote.TaskList{}, fmt.Errorf("%w: list task lists: %w", ErrConnection, err)
	}
	for _, l := range lists {
		if l.Name == p.opts.ListName {
			return l, nil
		}
	}

	p.log.Debug("creating new list", "list", p.opts.ListName)
	list, err := dir.CreateTaskList(ctx, p.opts.ListName)
	if err != nil {
		return remote.TaskList{}, fmt.Errorf("%w: create task list %q: %w", ErrConnection, p.opts.ListName, err)
	}
	return list, nil
}

// fetch lists the remote records. A failure is always an error, never an
// empty list, so an outage cannot look like a list to be recreated.
func (p *Provider) fetch(ctx context.Context) ([]remote.Record, error) {
	records, err := p.dir.ListTasks(ctx, p.list)
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %w", ErrConnection, err)
	}
	return records, nil
}

func (p *Provider) remoteUIDs(records []remote.Record) map[string]struct{} {
	uids := make(map[string]struct{}, len(records))
	for _, rec := range records {
		f, err := codec.Decode(rec.Body)
		if err != nil {
			p.log.Warn("ignoring undecodable remote task", "id", rec.ID, "error", err)
			continue
		}
		uids[f.UID] = struct{}{}
	}
	return uids
}

// Sync runs one reconciliation cycle. When the remote list cannot be fetched
// the local store is left untouched. The store is written once at the end,
// and only when at least one task changed.
func (p *Provider) Sync(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateDisabled:
		return nil, nil
	case StateConnected:
	default:
		p.log.Debug("skipping sync", "state", p.state)
		return nil, ErrNotConnected
	}

	start := time.Now()
	p.log.Info("sync tasks")

	records, err := p.fetch(ctx)
	if err != nil {
		p.log.Error("can't fetch remote tasks", "error", err)
		return nil, err
	}
	uids := p.remoteUIDs(records)

	data, err := p.opts.Store.Get()
	if err != nil {
		p.log.Error("can't read task store", "error", err)
		return nil, fmt.Errorf("read task store: %w", err)
	}

	res := &Result{}
	for i := range data.Tasks {
		p.reconcile(ctx, &data.Tasks[i], uids, res)
	}

	if err := p.opts.Binding.Commit(); err != nil {
		p.log.Error("can't save provider state", "error", err)
		return res, fmt.Errorf("commit %s binding: %w", p.opts.Name, err)
	}
	if len(res.Changes) > 0 {
		if err := p.opts.Store.Set(data); err != nil {
			p.log.Error("can't write task store", "error", err)
			return res, fmt.Errorf("write task store: %w", err)
		}
	}

	res.Duration = time.Since(start)
	p.log.Info("sync finished",
		"created", res.Created,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"assumed_deleted", res.AssumedDeleted,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration", res.Duration)
	return res, nil
}

func (p *Provider) reconcile(ctx context.Context, t *model.Task, uids map[string]struct{}, res *Result) {
	b := p.opts.Binding
	if !b.Tracks(*t) {
		p.log.Debug("task not tracked", "text", t.Text)
		res.Skipped++
		return
	}

	remoteID := b.RemoteID(*t)
	_, inRemote := uids[remoteID]
	action := Decide(inRemote, b.Synced(*t))
	p.log.Debug("reconcile task", "id", t.ID, "action", action)

	before := *t
	var err error
	switch action {
	case ActionCreate:
		if err = p.create(ctx, t); err == nil {
			res.Created++
		}
	case ActionUpdate:
		var pushed bool
		if pushed, err = p.update(ctx, t, remoteID); err == nil {
			if pushed {
				res.Updated++
			} else {
				res.Unchanged++
			}
		}
	case ActionAssumeDeleted:
		res.AssumedDeleted++
	case ActionNone:
		res.Unchanged++
	}

	switch {
	case errors.Is(err, ErrRecordGone):
		p.log.Warn("remote task disappeared, skipping", "id", t.ID)
		res.Skipped++
	case err != nil:
		p.log.Error("can't sync task", "id", t.ID, "action", action, "error", err)
		res.Failed++
	}

	if *t != before {
		res.Changes = append(res.Changes, Change{Before: before, After: *t})
	}
}

func (p *Provider) create(ctx context.Context, t *model.Task) error {
	b := p.opts.Binding
	body, err := p.opts.Codec.Encode(b.Fields(*t, p.opts.NewUID()))
	if err != nil {
		return err
	}
	rec, err := p.dir.CreateTask(ctx, p.list, body)
	if err != nil {
		return fmt.Errorf("%w: create task: %w", ErrConnection, err)
	}
	created, err := codec.Decode(rec.Body)
	if err != nil {
		return fmt.Errorf("decode created task: %w", err)
	}
	b.Bind(t, created.UID)
	return nil
}

// update pushes the local state over the remote record with uid remoteID.
// It reports false when the remote record already matched. Either way the
// task is marked synced afterwards, so an unchanged task is not pushed again
// on every cycle.
func (p *Provider) update(ctx context.Context, t *model.Task, remoteID string) (bool, error) {
	b := p.opts.Binding
	target := b.Fields(*t, remoteID)
	body, err := p.opts.Codec.Encode(target)
	if err != nil {
		return false, err
	}

	records, err := p.fetch(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		existing, err := codec.Decode(rec.Body)
		if err != nil || existing.UID != remoteID {
			continue
		}
		if !codec.NeedsUpdate(existing, target) {
			b.MarkSynced(t)
			return false, nil
		}
		rec.Body = body
		if err := p.dir.UpdateTask(ctx, rec); err != nil {
			return false, fmt.Errorf("%w: update task: %w", ErrConnection, err)
		}
		b.MarkSynced(t)
		return true, nil
	}
	return false, ErrRecordGone
}
