package models

import "fmt"

// AssetID identifies an asset within one bundling run. The entry asset is
// always 0 and ids are handed out in creation order.
type AssetID int

type AssetState int

const (
	Pending AssetState = iota
	Processed
)

func (s AssetState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Processed:
		return "Processed"
	default:
		return "Unknown"
	}
}

// Asset is one discovered module. Code and Dependencies are only meaningful
// once State is Processed.
type Asset struct {
	ID           AssetID
	Path         string
	State        AssetState
	Code         string
	Dependencies map[string]AssetID // specifier -> dependency id
}

func (a Asset) String() string {
	return fmt.Sprintf("#%d %s (%s)", a.ID, a.Path, a.State)
}
