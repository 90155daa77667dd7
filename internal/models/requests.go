package models

// TaskCreate is the POST body for creating a task.
type TaskCreate struct {
	Text     string `json:"text"`
	StatusID string `json:"statusId"`
}

// StatusInput is the POST/PUT body for creating or replacing a status.
type StatusInput struct {
	Label string `json:"label"`
	Color string `json:"color"`
}
