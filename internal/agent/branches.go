package agent

import (
	"errors"

	"github.com/google/uuid"

	"github.com/parleylabs/parley/internal/domain"
)

// ErrBranchNotFound is returned when a branch id is absent from the current
// branch set. It is a not-found outcome, not a session-fatal error.
var ErrBranchNotFound = errors.New("branch not found")

// Branch is an independently mutable copy of turn history created at a
// checkpoint.
type Branch struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Messages []domain.Message `json:"-"`
}

// BranchInfo is what checkpoint responses expose about a branch.
type BranchInfo struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	MessageCount int    `json:"messageCount"`
	Active       bool   `json:"active"`
}

// Checkpoint snapshots the current active history into two independent
// deep copies and makes the first one active. Calling it again while
// branches exist re-seeds from whatever the active branch has accumulated;
// the previous branch set is discarded.
func (a *Agent) Checkpoint() []BranchInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	base := a.activeHistory()
	a.branches = []*Branch{
		{ID: uuid.NewString(), Label: "Branch A", Messages: domain.CopyMessages(base)},
		{ID: uuid.NewString(), Label: "Branch B", Messages: domain.CopyMessages(base)},
	}
	a.activeBranchID = a.branches[0].ID

	return a.branchInfosLocked()
}

// SwitchBranch makes the identified branch active and returns its message
// list. An unknown id returns ErrBranchNotFound and leaves the active
// branch unchanged. No copying or merging happens on switch.
func (a *Agent) SwitchBranch(id string) ([]domain.Message, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, b := range a.branches {
		if b.ID == id {
			a.activeBranchID = b.ID
			return domain.CopyMessages(b.Messages), b.ID, nil
		}
	}
	return nil, "", ErrBranchNotFound
}

// Branches returns the current branch set, empty before any checkpoint.
func (a *Agent) Branches() []BranchInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.branchInfosLocked()
}

func (a *Agent) branchInfosLocked() []BranchInfo {
	infos := make([]BranchInfo, 0, len(a.branches))
	for _, b := range a.branches {
		infos = append(infos, BranchInfo{
			ID:           b.ID,
			Label:        b.Label,
			MessageCount: len(b.Messages),
			Active:       b.ID == a.activeBranchID,
		})
	}
	return infos
}

// activeBranch returns the active branch, or nil when no checkpoint exists.
// Callers must hold a.mu.
func (a *Agent) activeBranch() *Branch {
	for _, b := range a.branches {
		if b.ID == a.activeBranchID {
			return b
		}
	}
	return nil
}
