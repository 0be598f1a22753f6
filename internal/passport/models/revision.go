package models

import (
	"time"

	id "passport/pkg/domain"
)

// ChangeType classifies what a revision did to the item.
type ChangeType string

const (
	ChangeEdit      ChangeType = "edit"
	ChangePublish   ChangeType = "publish"
	ChangeUnpublish ChangeType = "unpublish"
	ChangeRestore   ChangeType = "restore"
)

// RevisionStatus records how a revision was resolved at the moment it entered
// history. It is fixed at append time; supersession is expressed by position
// in the ledger, never by rewriting an older entry.
type RevisionStatus string

const (
	StatusCurrent  RevisionStatus = "current"
	StatusPending  RevisionStatus = "pending"
	StatusApproved RevisionStatus = "approved"
	StatusRejected RevisionStatus = "rejected"
)

// Content is the authored payload of an item. Note carries the auxiliary
// text (a remedial suggestion for section items). Title is used by timeline entries.
type Content struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
	Note  string `json:"note,omitempty"`
}

// Revision is an immutable snapshot of item content.
type Revision struct {
	ID           id.RevisionID  `json:"id"`
	Content      Content        `json:"content"`
	AuthorID     id.UserID      `json:"author_id"`
	CreatedAt    time.Time      `json:"created_at"`
	ChangeType   ChangeType     `json:"change_type"`
	Status       RevisionStatus `json:"status"`
	RestoredFrom *id.RevisionID `json:"restored_from,omitempty"`
}

// carriesContent reports whether the revision set the item's published content.
func (r Revision) carriesContent() bool {
	return r.Status == StatusCurrent || r.Status == StatusApproved
}
