package workspaces

import "time"

// Workspace is the top-level container a user owns. Programs, assets and library items all
// live inside one.
type Workspace struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProgramStatus string

const (
	ProgramActive   ProgramStatus = "active"
	ProgramPaused   ProgramStatus = "paused"
	ProgramArchived ProgramStatus = "archived"
)

func (s ProgramStatus) Valid() bool {
	switch s {
	case ProgramActive, ProgramPaused, ProgramArchived:
		return true
	default:
		return false
	}
}

// Program is an engagement or bug-bounty scope inside a workspace.
type Program struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	Name        string        `json:"name"`
	Platform    string        `json:"platform"`
	ScopeNotes  string        `json:"scopeNotes"`
	Status      ProgramStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
