package model

// Task is a single record of the local task store.
//
// ID is assigned locally when the task is created and replaced by the
// Nextcloud uid the first time the task is created there. The synced flags
// are per provider and are reset whenever the task is edited locally.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Parent    string `json:"parent"`
	Completed bool   `json:"completed"`
	Color     string `json:"color"`
	SyncedNC  bool   `json:"synced_nc"`
	// SyncedGTasks is the Google Tasks counterpart of SyncedNC.
	SyncedGTasks bool `json:"synced_gtasks"`
}

// Data is a full snapshot of the local task store.
type Data struct {
	Tasks []Task `json:"tasks"`
}

// Find returns the index of the task with the given id, or -1.
func (d *Data) Find(id string) int {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
