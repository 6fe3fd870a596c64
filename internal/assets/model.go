package assets

import (
	"time"

	"secknow-backend/internal/suggestions"
)

type AssetType string

const (
	TypeWeb    AssetType = "web"
	TypeAPI    AssetType = "api"
	TypeMobile AssetType = "mobile"
	TypeHost   AssetType = "host"
	TypeCloud  AssetType = "cloud"
	TypeOther  AssetType = "other"
)

func (t AssetType) Valid() bool {
	switch t {
	case TypeWeb, TypeAPI, TypeMobile, TypeHost, TypeCloud, TypeOther:
		return true
	default:
		return false
	}
}

// Asset is a target under test. The id lists reference library items of the matching kind
// in the same workspace.
type Asset struct {
	ID               string    `json:"id"`
	WorkspaceID      string    `json:"workspaceId"`
	ProgramID        string    `json:"programId,omitempty"`
	Name             string    `json:"name"`
	Type             AssetType `json:"type"`
	Target           string    `json:"target"`
	TechnologyIDs    []string  `json:"technologyIds"`
	FunctionalityIDs []string  `json:"functionalityIds"`
	BehaviorIDs      []string  `json:"behaviorIds"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// View is an Asset with its associations resolved to names.
type View struct {
	Asset
	Technologies    []suggestions.Attribute `json:"technologies"`
	Functionalities []suggestions.Attribute `json:"functionalities"`
	Behaviors       []suggestions.Attribute `json:"behaviors"`
}

func (a Asset) references(itemID string) bool {
	for _, ids := range [][]string{a.TechnologyIDs, a.FunctionalityIDs, a.BehaviorIDs} {
		for _, id := range ids {
			if id == itemID {
				return true
			}
		}
	}
	return false
}

func (a Asset) associationIDs() []string {
	out := make([]string, 0, len(a.TechnologyIDs)+len(a.FunctionalityIDs)+len(a.BehaviorIDs))
	out = append(out, a.TechnologyIDs...)
	out = append(out, a.FunctionalityIDs...)
	out = append(out, a.BehaviorIDs...)
	return out
}

func cloneAsset(a Asset) Asset {
	a.TechnologyIDs = append([]string{}, a.TechnologyIDs...)
	a.FunctionalityIDs = append([]string{}, a.FunctionalityIDs...)
	a.BehaviorIDs = append([]string{}, a.BehaviorIDs...)
	a.Tags = append([]string{}, a.Tags...)
	return a
}
