package provider

// Action is what a reconciliation cycle does with one local task.
type Action int

const (
	// ActionCreate creates the task remotely and binds the new uid.
	ActionCreate Action = iota

	// ActionAssumeDeleted is taken for synced tasks missing remotely. The
	// local task is kept; deletions are not propagated.
	ActionAssumeDeleted

	// ActionUpdate pushes the local state over the remote record.
	ActionUpdate

	// ActionNone leaves a synced task alone. Remote edits are not pulled.
	ActionNone
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionAssumeDeleted:
		return "assume-deleted"
	case ActionUpdate:
		return "update"
	case ActionNone:
		return "none"
	}
	return "unknown"
}

// Decide picks the action for a task from whether its remote id is in the
// fetched uid set and whether its current state was already synced.
func Decide(inRemote, synced bool) Action {
	switch {
	case !inRemote && !synced:
		return ActionCreate
	case !inRemote && synced:
		return ActionAssumeDeleted
	case inRemote && !synced:
		return ActionUpdate
	default:
		return ActionNone
	}
}
