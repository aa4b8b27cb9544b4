package model

import (
	"time"

	"github.com/google/uuid"
)

// BatchState is the lifecycle state of a batch.
type BatchState string

const (
	BatchIdle      BatchState = "idle"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchCancelled BatchState = "cancelled"
	BatchFailed    BatchState = "failed" // the batch could not be started at all
)

// Terminal reports whether no further transitions can happen from the state.
func (s BatchState) Terminal() bool {
	return s == BatchCompleted || s == BatchCancelled || s == BatchFailed
}

// Batch is a job message describing one run of a tool over a list of files.
type Batch struct {
	ID        uuid.UUID        `json:"id"`
	ToolID    string           `json:"tool_id"`
	Settings  SettingsEnvelope `json:"settings"`
	Files     []File           `json:"files"` // Source holds the storage object path
	CreatedAt time.Time        `json:"created_at"`
}

// BatchStatus is the observable state of a batch.
type BatchStatus struct {
	ID          uuid.UUID  `json:"id"`
	ToolID      string     `json:"tool_id"`
	State       BatchState `json:"state"`
	Progress    float64    `json:"progress"`
	Files       []File     `json:"files"`
	Archive     string     `json:"archive,omitempty"` // object path of the zip tool output
	Texts       []string   `json:"texts,omitempty"`
	NoTextFound bool       `json:"no_text_found,omitempty"`
	Cancelled   bool       `json:"cancelled"`
	Error       string     `json:"error,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Outputs returns the result locations of the files that were processed.
func (s BatchStatus) Outputs() []string {
	out := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		if f.Result != "" {
			out = append(out, f.Result)
		}
	}

	if s.Archive != "" {
		out = append(out, s.Archive)
	}

	return out
}
