package models

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	pstrings "passport/pkg/platform/strings"
)

// MaxContentLength bounds the text of a single item, in runes.
const MaxContentLength = 4000

// MaxTagLength bounds a single timeline tag; longer tags are dropped.
const MaxTagLength = 40

// ItemKind tags the two item variants sharing the state machine.
type ItemKind string

const (
	KindSection  ItemKind = "section"
	KindTimeline ItemKind = "timeline"
)

// ItemState is the review lifecycle state of an item.
type ItemState string

const (
	StateDraft         ItemState = "draft"
	StatePendingReview ItemState = "pending_review"
	StatePublished     ItemState = "published"
	StateUnpublished   ItemState = "unpublished"
	StateRejected      ItemState = "rejected"
)

var allowedTransitions = map[ItemState][]ItemState{
	StateDraft:         {StatePendingReview, StatePublished},
	StatePendingReview: {StatePublished, StateUnpublished, StateRejected},
	StatePublished:     {StatePendingReview, StateUnpublished},
	StateUnpublished:   {StatePendingReview, StatePublished},
	StateRejected:      {StateDraft},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s ItemState) CanTransitionTo(next ItemState) bool {
	return slices.Contains(allowedTransitions[s], next)
}

// ContentItem is a single collaboratively authored unit: a section bullet or
// a timeline entry.
//
// Invariants:
//   - at most one pending revision exists, and it is never reflected in Content
//   - Content changes only through owner edits, approval, or restore
//   - Ledger is append-only (see Ledger)
//   - State and Published agree once settled: StatePublished implies
//     Published, StateUnpublished implies !Published
//   - items are never deleted; removal is an unpublish
//
// Mutate items only through the transition methods below; stores persist the
// result with a compare-and-swap on Version.
type ContentItem struct {
	ID         id.ItemID        `json:"id"`
	PassportID id.PassportID    `json:"passport_id"`
	Kind       ItemKind         `json:"kind"`
	Section    Section          `json:"section,omitempty"`
	Timeline   *TimelineDetails `json:"timeline,omitempty"`

	Content    Content    `json:"content"`
	Published  bool       `json:"published"`
	State      ItemState  `json:"state"`
	Pending    *Revision  `json:"pending,omitempty"`
	Ledger     Ledger     `json:"revisions"`
	Visibility Visibility `json:"visibility"`

	CreatedBy    id.UserID `json:"created_by"`
	LastEditedBy id.UserID `json:"last_edited_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// NewItemParams carries everything needed to create an item.
type NewItemParams struct {
	ItemID     id.ItemID
	RevisionID id.RevisionID
	PassportID id.PassportID
	Section    Section
	Timeline   *TimelineDetails
	Content    Content
	Visibility Visibility
	Author     Actor
	Now        time.Time
}

// NewItem creates an item in its initial state: published immediately when
// the author is the owner, pending review otherwise. Exactly one of Section
// and Timeline must be set.
func NewItem(p NewItemParams) (*ContentItem, *Revision, error) {
	if !p.Author.Role.CanWrite() {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "actor cannot add items to this passport")
	}
	item := &ContentItem{
		ID:           p.ItemID,
		PassportID:   p.PassportID,
		Visibility:   p.Visibility,
		CreatedBy:    p.Author.ID,
		LastEditedBy: p.Author.ID,
		CreatedAt:    p.Now,
		UpdatedAt:    p.Now,
		State:        StateDraft,
	}
	switch {
	case p.Timeline != nil && p.Section == "":
		if err := p.Timeline.Validate(); err != nil {
			return nil, nil, err
		}
		details := *p.Timeline
		details.Tags = pstrings.NormalizeLabels(details.Tags, MaxTagLength)
		item.Kind = KindTimeline
		item.Timeline = &details
	case p.Timeline == nil && p.Section.IsValid():
		item.Kind = KindSection
		item.Section = p.Section
	default:
		return nil, nil, dErrors.New(dErrors.CodeValidation, "item must belong to exactly one section or the timeline")
	}
	if err := p.Visibility.Validate(); err != nil {
		return nil, nil, err
	}
	rev, err := item.Propose(p.RevisionID, p.Author, p.Content, p.Now)
	if err != nil {
		return nil, nil, err
	}
	return item, rev, nil
}

// Placement names where the item lives, for passport-level history entries.
func (i *ContentItem) Placement() string {
	if i.Kind == KindTimeline {
		return "Timeline"
	}
	return i.Section.Title()
}

// HasContent reports whether the item has ever had published content.
func (i *ContentItem) HasContent() bool {
	_, ok := i.Ledger.Current()
	return ok
}

// IsPending reports whether a proposal awaits review.
func (i *ContentItem) IsPending() bool {
	return i.Pending != nil
}

// IsAuthor reports whether userID created the item or authored its pending revision.
func (i *ContentItem) IsAuthor(userID id.UserID) bool {
	if i.CreatedBy == userID {
		return true
	}
	return i.Pending != nil && i.Pending.AuthorID == userID
}

func (i *ContentItem) validateContent(c Content) error {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return dErrors.New(dErrors.CodeValidation, "content text cannot be empty")
	}
	if utf8.RuneCountInString(c.Text) > MaxContentLength {
		return dErrors.New(dErrors.CodeValidation, "content text is too long")
	}
	if i.Kind == KindTimeline && strings.TrimSpace(c.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "timeline entries require a title")
	}
	return nil
}

func (i *ContentItem) moveTo(next ItemState) error {
	if i.State == next {
		return nil
	}
	if !i.State.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot move item from "+string(i.State)+" to "+string(next))
	}
	i.State = next
	return nil
}

// settle returns the item to its resting state after a review or a publish toggle.
func (i *ContentItem) settle() error {
	switch {
	case !i.HasContent():
		return i.moveTo(StateRejected)
	case i.Published:
		return i.moveTo(StatePublished)
	default:
		return i.moveTo(StateUnpublished)
	}
}

func (i *ContentItem) touch(actor id.UserID, now time.Time) {
	i.LastEditedBy = actor
	if now.After(i.UpdatedAt) {
		i.UpdatedAt = now
	}
}

func (i *ContentItem) requireReviewer(actor Actor, action string) error {
	if !actor.Role.CanReview() {
		return dErrors.New(dErrors.CodeForbidden, "only the passport owners can "+action)
	}
	return nil
}

func (i *ContentItem) requireNoPending() error {
	if i.Pending != nil {
		return dErrors.New(dErrors.CodeConflict, "a pending revision already exists for this item")
	}
	return nil
}

// Propose submits new content. Contributors stage a pending revision; owners
// apply the content immediately as a new current revision. Both fail with a
// conflict while another revision is pending, so a stale edit can never
// silently overwrite one that is still awaiting review.
func (i *ContentItem) Propose(revisionID id.RevisionID, actor Actor, c Content, now time.Time) (*Revision, error) {
	if !actor.Role.CanWrite() {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor lacks write access to this passport")
	}
	if err := i.requireNoPending(); err != nil {
		return nil, err
	}
	if err := i.validateContent(c); err != nil {
		return nil, err
	}
	if i.State == StateRejected {
		if err := i.moveTo(StateDraft); err != nil {
			return nil, err
		}
	}

	rev := Revision{
		ID:         revisionID,
		Content:    c,
		AuthorID:   actor.ID,
		CreatedAt:  now,
		ChangeType: ChangeEdit,
	}
	if actor.Role.CanReview() {
		rev.Status = StatusCurrent
		if err := i.applyOwnerContent(rev); err != nil {
			return nil, err
		}
		i.touch(actor.ID, now)
		return &rev, nil
	}

	if err := i.moveTo(StatePendingReview); err != nil {
		return nil, err
	}
	rev.Status = StatusPending
	i.Pending = &rev
	i.touch(actor.ID, now)
	pending := rev
	return &pending, nil
}

// applyOwnerContent appends a content-bearing revision and makes it live.
// Items that never had content are published; otherwise the publication flag is kept.
func (i *ContentItem) applyOwnerContent(rev Revision) error {
	if i.State == StateDraft {
		if err := i.moveTo(StatePublished); err != nil {
			return err
		}
		i.Published = true
	}
	i.Ledger.Append(rev)
	i.Content = rev.Content
	return nil
}

func (i *ContentItem) pendingMatching(revisionID id.RevisionID) (Revision, error) {
	if i.Pending == nil {
		return Revision{}, dErrors.New(dErrors.CodeNotPending, "item has no pending revision")
	}
	if i.Pending.ID != revisionID {
		return Revision{}, dErrors.New(dErrors.CodeNotPending, "revision is not the pending revision of this item")
	}
	return *i.Pending, nil
}

// Approve commits the pending revision identified by revisionID and publishes it.
// A missing or different pending revision reports CodeNotPending, which callers
// treat as already resolved.
func (i *ContentItem) Approve(actor Actor, revisionID id.RevisionID, now time.Time) (*Revision, error) {
	if err := i.requireReviewer(actor, "approve revisions"); err != nil {
		return nil, err
	}
	rev, err := i.pendingMatching(revisionID)
	if err != nil {
		return nil, err
	}
	if err := i.moveTo(StatePublished); err != nil {
		return nil, err
	}
	rev.Status = StatusApproved
	i.Ledger.Append(rev)
	i.Content = rev.Content
	i.Published = true
	i.Pending = nil
	i.touch(actor.ID, now)
	return &rev, nil
}

// Reject records the pending revision as rejected and leaves published content untouched.
func (i *ContentItem) Reject(actor Actor, revisionID id.RevisionID, now time.Time) (*Revision, error) {
	if err := i.requireReviewer(actor, "reject revisions"); err != nil {
		return nil, err
	}
	rev, err := i.pendingMatching(revisionID)
	if err != nil {
		return nil, err
	}
	rev.Status = StatusRejected
	i.Ledger.Append(rev)
	i.Pending = nil
	if err := i.settle(); err != nil {
		return nil, err
	}
	i.touch(actor.ID, now)
	return &rev, nil
}

// Restore makes the content of a historical edit revision live again by
// appending a new restore revision. History is not modified.
func (i *ContentItem) Restore(newRevisionID id.RevisionID, actor Actor, targetID id.RevisionID, now time.Time) (*Revision, error) {
	if err := i.requireReviewer(actor, "restore revisions"); err != nil {
		return nil, err
	}
	target, ok := i.Ledger.Find(targetID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "revision not found in item history")
	}
	if target.ChangeType != ChangeEdit {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "only edit revisions can be restored")
	}
	if err := i.requireNoPending(); err != nil {
		return nil, err
	}
	if i.State == StateRejected {
		if err := i.moveTo(StateDraft); err != nil {
			return nil, err
		}
	}
	from := target.ID
	rev := Revision{
		ID:           newRevisionID,
		Content:      target.Content,
		AuthorID:     actor.ID,
		CreatedAt:    now,
		ChangeType:   ChangeRestore,
		Status:       StatusCurrent,
		RestoredFrom: &from,
	}
	if err := i.applyOwnerContent(rev); err != nil {
		return nil, err
	}
	i.touch(actor.ID, now)
	return &rev, nil
}

// SetPublished toggles publication and records a publish or unpublish marker.
// Setting the flag to its current value changes nothing and returns a nil revision.
func (i *ContentItem) SetPublished(revisionID id.RevisionID, actor Actor, published bool, now time.Time) (*Revision, error) {
	if err := i.requireReviewer(actor, "publish or unpublish items"); err != nil {
		return nil, err
	}
	if !i.HasContent() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "item has no approved content to publish")
	}
	if i.Published == published {
		return nil, nil
	}
	change := ChangeUnpublish
	if published {
		change = ChangePublish
	}
	rev := Revision{
		ID:         revisionID,
		Content:    i.Content,
		AuthorID:   actor.ID,
		CreatedAt:  now,
		ChangeType: change,
		Status:     StatusCurrent,
	}
	i.Published = published
	if i.State != StatePendingReview {
		if err := i.settle(); err != nil {
			return nil, err
		}
	}
	i.Ledger.Append(rev)
	i.touch(actor.ID, now)
	return &rev, nil
}

// SetVisibility replaces the item's visibility setting.
func (i *ContentItem) SetVisibility(actor Actor, v Visibility, now time.Time) error {
	if err := i.requireReviewer(actor, "change item visibility"); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}
	i.Visibility = cloneVisibility(v)
	i.touch(actor.ID, now)
	return nil
}

// Clone returns a deep copy that shares no mutable state with i.
func (i *ContentItem) Clone() *ContentItem {
	if i == nil {
		return nil
	}
	c := *i
	if i.Timeline != nil {
		t := *i.Timeline
		t.Tags = slices.Clone(t.Tags)
		c.Timeline = &t
	}
	if i.Pending != nil {
		p := *i.Pending
		c.Pending = &p
	}
	c.Ledger = i.Ledger.clone()
	c.Visibility = cloneVisibility(i.Visibility)
	return &c
}

func cloneVisibility(v Visibility) Visibility {
	v.Roles = slices.Clone(v.Roles)
	v.Identities = slices.Clone(v.Identities)
	return v
}
