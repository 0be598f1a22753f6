package models

import (
	"encoding/json"
	"iter"

	id "passport/pkg/domain"
)

// Ledger is the append-only revision history of one item.
//
// Invariants:
//   - entries are only ever appended; none is removed, reordered, or edited
//   - entries are in non-decreasing CreatedAt order
//
// The zero value is an empty ledger ready for use.
type Ledger struct {
	revisions []Revision
}

// Append adds rev to the end of the history. A revision older than the
// latest entry is stamped with the latest entry's time to keep the order monotonic.
func (l *Ledger) Append(rev Revision) {
	if n := len(l.revisions); n > 0 && rev.CreatedAt.Before(l.revisions[n-1].CreatedAt) {
		rev.CreatedAt = l.revisions[n-1].CreatedAt
	}
	l.revisions = append(l.revisions, rev)
}

// History yields revisions oldest first. The sequence is restartable and
// reading it has no side effects.
func (l Ledger) History() iter.Seq[Revision] {
	revisions := l.revisions
	return func(yield func(Revision) bool) {
		for _, rev := range revisions {
			if !yield(rev) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the history that callers may keep.
func (l Ledger) Snapshot() []Revision {
	return append([]Revision(nil), l.revisions...)
}

func (l Ledger) Len() int {
	return len(l.revisions)
}

func (l Ledger) Find(revisionID id.RevisionID) (Revision, bool) {
	for _, rev := range l.revisions {
		if rev.ID == revisionID {
			return rev, true
		}
	}
	return Revision{}, false
}

// Current returns the latest revision matching the published content.
func (l Ledger) Current() (Revision, bool) {
	for i := len(l.revisions) - 1; i >= 0; i-- {
		if l.revisions[i].carriesContent() {
			return l.revisions[i], true
		}
	}
	return Revision{}, false
}

func (l Ledger) clone() Ledger {
	return Ledger{revisions: l.Snapshot()}
}

func (l Ledger) MarshalJSON() ([]byte, error) {
	if l.revisions == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.revisions)
}

func (l *Ledger) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &l.revisions)
}
