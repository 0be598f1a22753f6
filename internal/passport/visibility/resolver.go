// Package visibility decides which actors may observe a content item.
//
// The rules compose in a fixed order:
//  1. the passport owner and co-owners see everything
//  2. items that are unpublished or have never had content are visible only
//     to their author (the creator or the author of the pending revision)
//  3. otherwise the item's visibility level, or the passport default when the
//     item inherits, decides; private admits only the pending revision's author
//
// Every function here is pure: no I/O, no clock, no shared state.
package visibility

import (
	"passport/internal/passport/models"
)

// CanView reports whether actor may observe item on passport p. actor must
// already carry its effective role on p (see models.Passport.EffectiveActor).
func CanView(actor models.Actor, item *models.ContentItem, p *models.Passport) bool {
	if item == nil || p == nil || item.PassportID != p.ID {
		return false
	}
	if isReviewer(actor, p) {
		return true
	}
	isAuthor := item.IsAuthor(actor.ID)
	if !item.Published || !item.HasContent() {
		return isAuthor
	}

	v := item.Visibility.Resolve(p.DefaultVisibility)
	switch v.Level {
	case models.LevelPublicLink:
		return true
	case models.LevelRoles:
		return isAuthor || v.AllowsIdentity(actor.ID) || (actor.Role.IsValid() && v.AllowsRole(actor.Role))
	case models.LevelCustom:
		return isAuthor || v.AllowsIdentity(actor.ID)
	default:
		// private, and any level we do not recognise: only the author of
		// the staged revision, so a contributor can follow their submission
		return item.Pending != nil && item.Pending.AuthorID == actor.ID
	}
}

// CanSeePending reports whether actor may observe the staged content of item.
// Only the owners and the pending revision's author qualify; visibility levels
// never widen access to unreviewed content.
func CanSeePending(actor models.Actor, item *models.ContentItem, p *models.Passport) bool {
	if item == nil || item.Pending == nil || p == nil {
		return false
	}
	return isReviewer(actor, p) || item.Pending.AuthorID == actor.ID
}

// isReviewer requires both the actor's role and its membership to be an
// owner role, so an actor that was not capped cannot widen access.
func isReviewer(actor models.Actor, p *models.Passport) bool {
	return actor.Role.CanReview() && p.RoleOf(actor.ID).CanReview()
}

// Filter keeps the items actor may view, preserving order.
func Filter(actor models.Actor, items []*models.ContentItem, p *models.Passport) []*models.ContentItem {
	out := make([]*models.ContentItem, 0, len(items))
	for _, item := range items {
		if CanView(actor, item, p) {
			out = append(out, item)
		}
	}
	return out
}
