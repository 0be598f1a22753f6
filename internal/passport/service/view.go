package service

import (
	"time"

	"passport/internal/passport/models"
	"passport/internal/passport/visibility"
	id "passport/pkg/domain"
)

// ItemView is an item as one particular actor may observe it. Pending is set
// only for owners and the pending revision's author.
type ItemView struct {
	ID           id.ItemID               `json:"id"`
	PassportID   id.PassportID           `json:"passport_id"`
	Kind         models.ItemKind         `json:"kind"`
	Section      models.Section          `json:"section,omitempty"`
	Timeline     *models.TimelineDetails `json:"timeline,omitempty"`
	Content      models.Content          `json:"content"`
	Published    bool                    `json:"published"`
	State        models.ItemState        `json:"state"`
	Pending      *models.Revision        `json:"pending,omitempty"`
	Visibility   models.Visibility       `json:"visibility"`
	CreatedBy    id.UserID               `json:"created_by"`
	LastEditedBy id.UserID               `json:"last_edited_by"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	Version      int64                   `json:"version"`
}

func newItemView(actor models.Actor, item *models.ContentItem, p *models.Passport) ItemView {
	v := ItemView{
		ID:           item.ID,
		PassportID:   item.PassportID,
		Kind:         item.Kind,
		Section:      item.Section,
		Timeline:     item.Timeline,
		Content:      item.Content,
		Published:    item.Published,
		State:        item.State,
		Visibility:   item.Visibility,
		CreatedBy:    item.CreatedBy,
		LastEditedBy: item.LastEditedBy,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
		Version:      item.Version,
	}
	if visibility.CanSeePending(actor, item, p) {
		pending := *item.Pending
		v.Pending = &pending
	}
	return v
}

// PublishStats counts a passport's items by publication status.
type PublishStats struct {
	Published   int `json:"published"`
	Unpublished int `json:"unpublished"`
	Pending     int `json:"pending"`
	Rejected    int `json:"rejected"`
}

func (st *PublishStats) add(item *models.ContentItem) {
	if item.IsPending() {
		st.Pending++
	}
	switch {
	case item.State == models.StateRejected:
		st.Rejected++
	case !item.HasContent():
	case item.Published:
		st.Published++
	default:
		st.Unpublished++
	}
}

// PassportView is a passport filtered for one actor. Members and Stats are
// only filled in for owners.
type PassportView struct {
	ID                id.PassportID                 `json:"id"`
	OwnerID           id.UserID                     `json:"owner_id"`
	Child             models.ChildProfile           `json:"child"`
	WizardComplete    bool                          `json:"wizard_complete"`
	DefaultVisibility models.Visibility             `json:"default_visibility"`
	ChildViewHates    bool                          `json:"child_view_show_hates"`
	Role              models.Role                   `json:"role"`
	Sections          map[models.Section][]ItemView `json:"sections"`
	Timeline          []ItemView                    `json:"timeline"`
	Members           map[id.UserID]models.Role     `json:"members,omitempty"`
	Stats             *PublishStats                 `json:"stats,omitempty"`
	SuggestedMax      map[models.Section]int        `json:"suggested_max,omitempty"`
	Version           int64                         `json:"version"`
}
