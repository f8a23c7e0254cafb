// Package retention decides which managed snapshots a run deletes.
//
// Policies are pure: they only see the snapshots already filtered by the
// naming convention, in provider order (oldest first), and return a Plan.
// Executing the plan is the caller's job.
package retention

import (
	"fmt"

	"github.com/lucasew/snaprotate/internal/model"
)

type Kind string

const (
	// KindPurge deletes every managed snapshot on every run.
	KindPurge Kind = "purge"
	// KindKeepNewest deletes the single oldest managed snapshot once more
	// than Keep of them exist.
	KindKeepNewest Kind = "keep-newest"
)

// DefaultKeep makes keep-newest act once 12 or more managed snapshots exist.
const DefaultKeep = 11

type Plan struct {
	Keep   []model.Snapshot
	Delete []model.Snapshot
}

type Policy interface {
	Kind() Kind
	Plan(managed []model.Snapshot) Plan
}

// New returns the policy for kind. keep is only used by keep-newest.
func New(kind Kind, keep int) (Policy, error) {
	switch kind {
	case KindPurge:
		return Purge{}, nil
	case KindKeepNewest, "":
		if keep < 0 {
			return nil, fmt.Errorf("keep must be non-negative, got %d", keep)
		}
		return KeepNewest{Keep: keep}, nil
	default:
		return nil, fmt.Errorf("unknown retention policy %q", kind)
	}
}

type Purge struct{}

func (Purge) Kind() Kind { return KindPurge }

func (Purge) Plan(managed []model.Snapshot) Plan {
	return Plan{Delete: clone(managed)}
}

// KeepNewest converges toward Keep managed snapshots by deleting at most one
// per run, always the first (oldest) one.
type KeepNewest struct {
	Keep int
}

func (KeepNewest) Kind() Kind { return KindKeepNewest }

func (p KeepNewest) Plan(managed []model.Snapshot) Plan {
	if len(managed) <= p.Keep || len(managed) == 0 {
		return Plan{Keep: clone(managed)}
	}
	return Plan{
		Keep:   clone(managed[1:]),
		Delete: clone(managed[:1]),
	}
}

func clone(s []model.Snapshot) []model.Snapshot {
	if len(s) == 0 {
		return nil
	}
	out := make([]model.Snapshot, len(s))
	copy(out, s)
	return out
}
