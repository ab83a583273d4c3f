// Package nav computes the role- and config-driven navigation tree served to
// the SPA. Generation is a pure function over the normalized user, company
// config, and current entity; SSO items carry a named command resolved by the
// Executor at click time instead of a URL.
package nav

// ActionType says what clicking an item does.
type ActionType string

const (
	// ActionRoute navigates to an in-app route.
	ActionRoute ActionType = "route"

	// ActionCommand executes a named SSO command against the back office and
	// opens the resulting URL in a new tab.
	ActionCommand ActionType = "command"
)

// Item is one navigation leaf. Exactly one of Route/Command is set, matching
// Action. Visibility is computed independently per item; a hidden parent does
// not hide its children and vice versa — collapsing empty groups is the
// rendering layer's call.
type Item struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Icon    string     `json:"icon,omitempty"`
	Action  ActionType `json:"action"`
	Route   string     `json:"route,omitempty"`
	Command Command    `json:"command,omitempty"`
	Visible bool       `json:"visible"`
}

// Group is one of the four top-level navigation sections. Item order is
// source order and must survive serialization untouched.
type Group struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
	Items   []Item `json:"items"`
}

// Tree is the full navigation payload for one user.
type Tree struct {
	Items []Group `json:"items"`
}
