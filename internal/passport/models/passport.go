package models

import (
	"maps"
	"slices"
	"strings"
	"time"

	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
)

// ChildProfile is the passport subject's descriptive metadata.
type ChildProfile struct {
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Pronouns    string     `json:"pronouns,omitempty"`
	Summary     string     `json:"summary,omitempty"`
}

func (p ChildProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "child name is required")
	}
	return nil
}

// PassportRevision is one passport-level history entry. Numbers start at 1.
type PassportRevision struct {
	Number      int       `json:"number"`
	Description string    `json:"description"`
	ActorID     id.UserID `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Passport owns section membership, timeline order, members, and
// passport-level history. Item content lives on the items themselves.
//
// Invariants:
//   - an item id appears in at most one section (or the timeline), never twice
//   - section and timeline order is creation order and is never rewritten
//   - Revisions are append-only and numbered consecutively from 1
type Passport struct {
	ID                id.PassportID           `json:"id"`
	OwnerID           id.UserID               `json:"owner_id"`
	Child             ChildProfile            `json:"child"`
	WizardComplete    bool                    `json:"wizard_complete"`
	DefaultVisibility Visibility              `json:"default_visibility"`
	ChildViewHates    bool                    `json:"child_view_show_hates"`
	Members           map[id.UserID]Role      `json:"members"`
	Sections          map[Section][]id.ItemID `json:"sections"`
	Timeline          []id.ItemID             `json:"timeline"`
	Revisions         []PassportRevision      `json:"revisions"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	Version           int64                   `json:"version"`
}

// NewPassport creates a passport owned by owner. An inherit default
// visibility is replaced with DefaultPassportVisibility.
func NewPassport(passportID id.PassportID, owner id.UserID, child ChildProfile, defaultVisibility Visibility, now time.Time) (*Passport, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	if err := child.Validate(); err != nil {
		return nil, err
	}
	if defaultVisibility.Level == LevelInherit {
		defaultVisibility = DefaultPassportVisibility
	}
	if err := defaultVisibility.Validate(); err != nil {
		return nil, err
	}
	p := &Passport{
		ID:                passportID,
		OwnerID:           owner,
		Child:             child,
		DefaultVisibility: cloneVisibility(defaultVisibility),
		Members:           map[id.UserID]Role{},
		Sections:          map[Section][]id.ItemID{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	p.Record("Created passport", owner, now)
	return p, nil
}

// RoleOf returns the role membership grants userID on this passport.
func (p *Passport) RoleOf(userID id.UserID) Role {
	if userID == p.OwnerID {
		return RoleOwner
	}
	return p.Members[userID]
}

// EffectiveActor caps the caller's claimed role by their membership.
// Callers without membership end up with RoleNone.
func (p *Passport) EffectiveActor(caller Actor) Actor {
	return Actor{ID: caller.ID, Role: p.RoleOf(caller.ID).atMost(caller.Role)}
}

// Record appends a passport-level history entry.
func (p *Passport) Record(description string, actor id.UserID, now time.Time) PassportRevision {
	rev := PassportRevision{
		Number:      len(p.Revisions) + 1,
		Description: description,
		ActorID:     actor,
		CreatedAt:   now,
	}
	if n := len(p.Revisions); n > 0 && now.Before(p.Revisions[n-1].CreatedAt) {
		rev.CreatedAt = p.Revisions[n-1].CreatedAt
	}
	p.Revisions = append(p.Revisions, rev)
	if rev.CreatedAt.After(p.UpdatedAt) {
		p.UpdatedAt = rev.CreatedAt
	}
	return rev
}

// Contains reports whether itemID is already a member of the passport.
func (p *Passport) Contains(itemID id.ItemID) bool {
	if slices.Contains(p.Timeline, itemID) {
		return true
	}
	for _, ids := range p.Sections {
		if slices.Contains(ids, itemID) {
			return true
		}
	}
	return false
}

// AttachItem appends item to its section or the timeline and records the change.
// The returned flag is true when the section now holds more items than
// suggestedMax; exceeding it is allowed.
func (p *Passport) AttachItem(item *ContentItem, actor id.UserID, suggestedMax int, now time.Time) (bool, error) {
	if item.PassportID != p.ID {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "item belongs to another passport")
	}
	if p.Contains(item.ID) {
		return false, dErrors.New(dErrors.CodeConflict, "item is already part of this passport")
	}
	overLimit := false
	switch item.Kind {
	case KindTimeline:
		p.Timeline = append(p.Timeline, item.ID)
	case KindSection:
		if p.Sections == nil {
			p.Sections = map[Section][]id.ItemID{}
		}
		p.Sections[item.Section] = append(p.Sections[item.Section], item.ID)
		overLimit = suggestedMax > 0 && len(p.Sections[item.Section]) > suggestedMax
	default:
		return false, dErrors.New(dErrors.CodeInvariantViolation, "unknown item kind")
	}
	p.Record("Added item to "+item.Placement(), actor, now)
	return overLimit, nil
}

// ItemIDs returns every item id in section order followed by the timeline.
func (p *Passport) ItemIDs() []id.ItemID {
	var ids []id.ItemID
	for _, s := range Sections {
		ids = append(ids, p.Sections[s]...)
	}
	return append(ids, p.Timeline...)
}

// requireOwner admits only the passport's owner of record.
func (p *Passport) requireOwner(actor Actor, action string) error {
	if actor.ID != p.OwnerID || actor.Role != RoleOwner {
		return dErrors.New(dErrors.CodeForbidden, "only the passport owner can "+action)
	}
	return nil
}

// requireReviewer admits the owner and co-owners.
func (p *Passport) requireReviewer(actor Actor, action string) error {
	if !actor.Role.CanReview() || p.RoleOf(actor.ID) == RoleNone {
		return dErrors.New(dErrors.CodeForbidden, "only the passport owners can "+action)
	}
	return nil
}

// CompleteWizard marks initial setup as done. Completing twice is a no-op
// that reports false.
func (p *Passport) CompleteWizard(actor Actor, now time.Time) (bool, error) {
	if err := p.requireReviewer(actor, "complete the setup wizard"); err != nil {
		return false, err
	}
	if p.WizardComplete {
		return false, nil
	}
	p.WizardComplete = true
	p.Record("Completed initial setup wizard", actor.ID, now)
	return true, nil
}

// GrantAccess adds or changes a member. The owner's own role cannot be changed.
func (p *Passport) GrantAccess(actor Actor, userID id.UserID, role Role, now time.Time) error {
	if err := p.requireOwner(actor, "grant access"); err != nil {
		return err
	}
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user is required")
	}
	if userID == p.OwnerID {
		return dErrors.New(dErrors.CodeInvalidTransition, "owner role cannot be changed")
	}
	if role != RoleCoOwner && role != RoleContributor && role != RoleViewer {
		return dErrors.New(dErrors.CodeValidation, "members can only be co-owners, contributors or viewers")
	}
	if p.Members == nil {
		p.Members = map[id.UserID]Role{}
	}
	if p.Members[userID] == role {
		return nil
	}
	p.Members[userID] = role
	p.Record("Granted "+string(role)+" access", actor.ID, now)
	return nil
}

// RevokeAccess removes a member. Revoking a non-member is a no-op.
func (p *Passport) RevokeAccess(actor Actor, userID id.UserID, now time.Time) error {
	if err := p.requireOwner(actor, "revoke access"); err != nil {
		return err
	}
	if userID == p.OwnerID {
		return dErrors.New(dErrors.CodeInvalidTransition, "owner access cannot be revoked")
	}
	role, ok := p.Members[userID]
	if !ok {
		return nil
	}
	delete(p.Members, userID)
	p.Record("Revoked "+string(role)+" access", actor.ID, now)
	return nil
}

// SetDefaultVisibility changes the level inherited by items without their own setting.
func (p *Passport) SetDefaultVisibility(actor Actor, v Visibility, now time.Time) error {
	if err := p.requireReviewer(actor, "change default visibility"); err != nil {
		return err
	}
	if v.Level == LevelInherit {
		return dErrors.New(dErrors.CodeValidation, "passport default visibility cannot inherit")
	}
	if err := v.Validate(); err != nil {
		return err
	}
	p.DefaultVisibility = cloneVisibility(v)
	p.Record("Changed default visibility to "+string(v.Level), actor.ID, now)
	return nil
}

// SetChildView controls whether the child's own view includes the HATES
// section. It reports false when the setting already had that value.
func (p *Passport) SetChildView(actor Actor, showHates bool, now time.Time) (bool, error) {
	if err := p.requireReviewer(actor, "change child view settings"); err != nil {
		return false, err
	}
	if p.ChildViewHates == showHates {
		return false, nil
	}
	p.ChildViewHates = showHates
	if showHates {
		p.Record("Enabled hates in child view", actor.ID, now)
	} else {
		p.Record("Disabled hates in child view", actor.ID, now)
	}
	return true, nil
}

// ChildViewSections lists the sections shown to the child, in display order.
func (p *Passport) ChildViewSections() []Section {
	if p.ChildViewHates {
		return []Section{SectionLoves, SectionHates, SectionStrengths}
	}
	return []Section{SectionLoves, SectionStrengths}
}

// Clone returns a deep copy that shares no mutable state with p.
func (p *Passport) Clone() *Passport {
	if p == nil {
		return nil
	}
	c := *p
	if p.Child.DateOfBirth != nil {
		dob := *p.Child.DateOfBirth
		c.Child.DateOfBirth = &dob
	}
	c.DefaultVisibility = cloneVisibility(p.DefaultVisibility)
	c.Members = maps.Clone(p.Members)
	c.Sections = make(map[Section][]id.ItemID, len(p.Sections))
	for s, ids := range p.Sections {
		c.Sections[s] = slices.Clone(ids)
	}
	c.Timeline = slices.Clone(p.Timeline)
	c.Revisions = slices.Clone(p.Revisions)
	return &c
}
