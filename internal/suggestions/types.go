package suggestions

import (
	"fmt"
	"strings"
)

// Type names the kind of artifact a suggestion points at.
type Type string

const (
	TypeTechnology         Type = "technology"
	TypeFunctionality      Type = "functionality"
	TypeBehavior           Type = "behavior"
	TypeVulnerabilityClass Type = "vulnerability-class"
	TypeTechnique          Type = "technique"
	TypePayload            Type = "payload"
	TypePlaybook           Type = "playbook"
	TypeMethodology        Type = "methodology"
)

// AllTypes lists every suggestion type in display order.
var AllTypes = []Type{
	TypeTechnology,
	TypeFunctionality,
	TypeBehavior,
	TypeVulnerabilityClass,
	TypeTechnique,
	TypePayload,
	TypePlaybook,
	TypeMethodology,
}

// ParseType normalizes a type name. Underscores and spaces are accepted in place of dashes.
func ParseType(raw string) (Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	for _, t := range AllTypes {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown suggestion type %q", raw)
}

// Valid reports whether t is part of the fixed enumeration.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Priority is the urgency tier of a suggestion.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// AllPriorities lists priorities from most to least urgent.
var AllPriorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority normalizes a priority name.
func ParsePriority(raw string) (Priority, error) {
	normalized := Priority(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range AllPriorities {
		if p == normalized {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown suggestion priority %q", raw)
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// Suggestion is a single recommended next artifact. Values are never mutated after the
// engine returns them.
type Suggestion struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  int      `json:"confidence"`
	Category    string   `json:"category,omitempty"`
	RelevantTo  []string `json:"relevantTo"`
}

// Attribute is one technology, functionality or behavior assigned to an asset.
type Attribute struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Context is everything the engine knows about the asset under review.
// A nil *Context means no asset is selected.
type Context struct {
	AssetID         string      `json:"assetId"`
	AssetType       string      `json:"assetType"`
	Technologies    []Attribute `json:"technologies"`
	Functionalities []Attribute `json:"functionalities"`
	Behaviors       []Attribute `json:"behaviors"`
	Tags            []string    `json:"tags"`
}

// Clone returns a deep copy so callers can keep mutating their own value.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := &Context{
		AssetID:         c.AssetID,
		AssetType:       c.AssetType,
		Technologies:    append([]Attribute(nil), c.Technologies...),
		Functionalities: append([]Attribute(nil), c.Functionalities...),
		Behaviors:       append([]Attribute(nil), c.Behaviors...),
		Tags:            append([]string(nil), c.Tags...),
	}
	return out
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
