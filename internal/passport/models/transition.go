package models

import (
	"time"

	id "passport/pkg/domain"
)

// TransitionKind names a successful state change, as broadcast to the
// notification collaborator.
type TransitionKind string

const (
	TransitionCreated     TransitionKind = "item.created"
	TransitionProposed    TransitionKind = "item.proposed"
	TransitionEdited      TransitionKind = "item.edited"
	TransitionApproved    TransitionKind = "item.approved"
	TransitionRejected    TransitionKind = "item.rejected"
	TransitionRestored    TransitionKind = "item.restored"
	TransitionPublished   TransitionKind = "item.published"
	TransitionUnpublished TransitionKind = "item.unpublished"
	TransitionVisibility  TransitionKind = "item.visibility_changed"
)

// Transition is the fire-and-forget event emitted after a committed change.
type Transition struct {
	ItemID     id.ItemID      `json:"item_id"`
	PassportID id.PassportID  `json:"passport_id"`
	Kind       TransitionKind `json:"transition"`
	State      ItemState      `json:"state"`
	RevisionID *id.RevisionID `json:"revision_id,omitempty"`
	ActorID    id.UserID      `json:"actor_id"`
	At         time.Time      `json:"at"`
}

// NewTransition describes the change that produced rev on item. rev may be nil.
func NewTransition(kind TransitionKind, item *ContentItem, rev *Revision, actor id.UserID, at time.Time) Transition {
	t := Transition{
		ItemID:     item.ID,
		PassportID: item.PassportID,
		Kind:       kind,
		State:      item.State,
		ActorID:    actor,
		At:         at,
	}
	if rev != nil {
		revID := rev.ID
		t.RevisionID = &revID
	}
	return t
}
