// internal/ui/messages.go
package ui

import (
	"github.com/nhath/dbscope/internal/validate"
	"github.com/nhath/dbscope/internal/xref"
)

// DebounceMsg fires once typing has paused. Stale IDs are ignored.
type DebounceMsg struct {
	ID int
}

// ValidatedMsg carries the outcome of a validation started by the model
type ValidatedMsg struct {
	Outcome validate.Outcome
}

// ResolvedMsg carries a resolved file reference
type ResolvedMsg struct {
	Resolution xref.Resolution
	Err        error
}

// clearBannerMsg removes the banner it was scheduled for
type clearBannerMsg struct {
	ID int
}
