// Package models defines the records persisted by taskd and the request and
// error envelopes of its HTTP API. JSON field names match the files written
// by earlier versions of the service.
package models

// Task is a unit of work. Field order here is the field order on disk.
type Task struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Created  Timestamp `json:"created"`
	StatusID string    `json:"statusId"`
}

// TaskID is the identifier accessor used by the task store.
func TaskID(t Task) string { return t.ID }

// Status is a workflow state a task can be in.
type Status struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"` // #RRGGBB
}

// StatusID is the identifier accessor used by the status store.
func StatusID(s Status) string { return s.ID }

// Collection names, used in change events and logs.
const (
	CollectionTasks    = "tasks"
	CollectionStatuses = "statuses"
)

// ChangeEvent announces that a collection file changed on disk.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Count      int       `json:"count"`
	At         Timestamp `json:"at"`
}

// Info describes the running service.
type Info struct {
	Version   string    `json:"version"`
	Hostname  string    `json:"hostname"`
	StartedAt Timestamp `json:"started_at"`
	Tasks     int       `json:"tasks"`
	Statuses  int       `json:"statuses"`
}

// ReloadResult is the body of POST /api/tasks/reload.
type ReloadResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	Tasks   []Task `json:"tasks"`
}
