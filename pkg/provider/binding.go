package provider

import (
	"github.com/harrisonrobin/errands/pkg/codec"
	"github.com/harrisonrobin/errands/pkg/index"
	"github.com/harrisonrobin/errands/pkg/model"
)

// Binding ties local tasks to one provider's remote identity and synced
// flag.
type Binding interface {
	// Tracks reports whether the task takes part in this provider's sync.
	Tracks(t model.Task) bool
	// RemoteID is the uid the task is expected to have remotely.
	RemoteID(t model.Task) string
	Synced(t model.Task) bool
	// Fields encodes the task for the remote list under uid.
	Fields(t model.Task, uid string) codec.Fields
	// Bind records the uid of a freshly created remote task and marks the
	// task synced.
	Bind(t *model.Task, uid string)
	MarkSynced(t *model.Task)
	// Commit persists binding state kept outside the task store.
	Commit() error
}

// NextcloudBinding uses the task id as the remote uid and SyncedNC as the
// flag. RELATED-TO is the raw parent id, so a child created before its
// parent references the parent's local id until a later cycle.
type NextcloudBinding struct{}

func (NextcloudBinding) Tracks(model.Task) bool { return true }

func (NextcloudBinding) RemoteID(t model.Task) string { return t.ID }

func (NextcloudBinding) Synced(t model.Task) bool { return t.SyncedNC }

func (NextcloudBinding) Fields(t model.Task, uid string) codec.Fields {
	return codec.FieldsFor(t, uid, t.Parent)
}

func (NextcloudBinding) Bind(t *model.Task, uid string) {
	t.ID = uid
	t.SyncedNC = true
}

func (NextcloudBinding) MarkSynced(t *model.Task) { t.SyncedNC = true }

func (NextcloudBinding) Commit() error { return nil }

// IndexBinding keeps the local id and records the remote id in an index.
// Tasks without a local id are not tracked.
type IndexBinding struct {
	Index *index.Index
}

func (b IndexBinding) Tracks(t model.Task) bool { return t.ID != "" }

func (b IndexBinding) RemoteID(t model.Task) string { return b.Index.Get(t.ID) }

func (b IndexBinding) Synced(t model.Task) bool { return t.SyncedGTasks }

// Fields resolves the parent through the index; an unsynced parent yields
// no parent.
func (b IndexBinding) Fields(t model.Task, uid string) codec.Fields {
	var parent string
	if t.Parent != "" {
		parent = b.Index.Get(t.Parent)
	}
	return codec.FieldsFor(t, uid, parent)
}

func (b IndexBinding) Bind(t *model.Task, uid string) {
	b.Index.Set(t.ID, uid)
	t.SyncedGTasks = true
}

func (b IndexBinding) MarkSynced(t *model.Task) { t.SyncedGTasks = true }

func (b IndexBinding) Commit() error { return b.Index.Save() }
