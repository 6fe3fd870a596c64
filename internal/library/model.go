package library

import (
	"time"

	"secknow-backend/internal/suggestions"
)

// Item is one piece of knowledge in a workspace library. Technology, functionality and
// behavior items double as the attributes assets are associated with.
type Item struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspaceId"`
	Kind        suggestions.Type `json:"kind"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Tags        []string         `json:"tags"`
	Content     string           `json:"content"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ListFilter narrows List results. Empty fields do not filter.
type ListFilter struct {
	Kind  suggestions.Type
	Tag   string
	Query string
}
