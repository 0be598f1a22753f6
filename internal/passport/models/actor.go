package models

import (
	id "passport/pkg/domain"
)

// Role is the capacity in which an actor works on a passport.
type Role string

const (
	RoleNone        Role = ""
	RoleViewer      Role = "viewer"
	RoleContributor Role = "contributor"
	// RoleCoOwner reviews and publishes like the owner but cannot manage
	// membership.
	RoleCoOwner Role = "co_owner"
	RoleOwner   Role = "owner"
)

var roleRank = map[Role]int{
	RoleNone:        0,
	RoleViewer:      1,
	RoleContributor: 2,
	RoleCoOwner:     3,
	RoleOwner:       4,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok && r != RoleNone
}

// CanWrite reports whether the role may author content (directly or by proposal).
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleCoOwner || r == RoleContributor
}

// CanReview reports whether the role applies content directly and resolves
// other members' proposals.
func (r Role) CanReview() bool {
	return r == RoleOwner || r == RoleCoOwner
}

func (r Role) atMost(other Role) Role {
	if roleRank[r] <= roleRank[other] {
		return r
	}
	return other
}

// Actor is an already-authenticated caller. It is supplied per call and never persisted.
type Actor struct {
	ID   id.UserID
	Role Role
}

func NewActor(userID id.UserID, role Role) Actor {
	return Actor{ID: userID, Role: role}
}
