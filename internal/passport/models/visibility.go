package models

import (
	"slices"

	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
)

// VisibilityLevel is the access scope attached to an item or passport.
// Levels are listed in increasing openness; LevelInherit defers to the passport default.
type VisibilityLevel string

const (
	LevelInherit    VisibilityLevel = ""
	LevelPrivate    VisibilityLevel = "private"
	LevelCustom     VisibilityLevel = "custom"
	LevelRoles      VisibilityLevel = "roles"
	LevelPublicLink VisibilityLevel = "public_link"
)

func (l VisibilityLevel) IsValid() bool {
	switch l {
	case LevelInherit, LevelPrivate, LevelCustom, LevelRoles, LevelPublicLink:
		return true
	}
	return false
}

// Visibility pairs a level with the allow-lists used by the scoped levels.
// Roles applies to LevelRoles; Identities applies to LevelRoles and LevelCustom.
type Visibility struct {
	Level      VisibilityLevel `json:"level"`
	Roles      []Role          `json:"roles,omitempty"`
	Identities []id.UserID     `json:"identities,omitempty"`
}

var DefaultPassportVisibility = Visibility{Level: LevelPrivate}

// Validate rejects unknown levels and allow-lists that the level would ignore.
func (v Visibility) Validate() error {
	if !v.Level.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown visibility level")
	}
	for _, r := range v.Roles {
		if !r.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown role in visibility list")
		}
	}
	if len(v.Roles) > 0 && v.Level != LevelRoles {
		return dErrors.New(dErrors.CodeValidation, "roles list requires the roles visibility level")
	}
	if len(v.Identities) > 0 && v.Level != LevelRoles && v.Level != LevelCustom {
		return dErrors.New(dErrors.CodeValidation, "identity list requires the roles or custom visibility level")
	}
	return nil
}

// Resolve returns v, or fallback when v inherits.
func (v Visibility) Resolve(fallback Visibility) Visibility {
	if v.Level == LevelInherit {
		return fallback
	}
	return v
}

func (v Visibility) AllowsRole(r Role) bool {
	return slices.Contains(v.Roles, r)
}

func (v Visibility) AllowsIdentity(userID id.UserID) bool {
	return slices.Contains(v.Identities, userID)
}
