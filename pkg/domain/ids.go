// Package domain holds the identifier primitives shared by every module.
//
// IDs are distinct named types over uuid.UUID so a PassportID can never be
// passed where an ItemID is expected. Construct them from external input with
// the Parse functions; they reject empty, malformed, and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "passport/pkg/domain-errors"
)

type (
	UserID     uuid.UUID
	PassportID uuid.UUID
	ItemID     uuid.UUID
	RevisionID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParsePassportID(s string) (PassportID, error) {
	u, err := parseUUID(s, "passport id")
	return PassportID(u), err
}

func ParseItemID(s string) (ItemID, error) {
	u, err := parseUUID(s, "item id")
	return ItemID(u), err
}

func ParseRevisionID(s string) (RevisionID, error) {
	u, err := parseUUID(s, "revision id")
	return RevisionID(u), err
}

func NewPassportID() PassportID { return PassportID(uuid.New()) }
func NewItemID() ItemID         { return ItemID(uuid.New()) }
func NewRevisionID() RevisionID { return RevisionID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id PassportID) String() string { return uuid.UUID(id).String() }
func (id ItemID) String() string     { return uuid.UUID(id).String() }
func (id RevisionID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PassportID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RevisionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps IDs as canonical strings in JSON records and map keys.

func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id PassportID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ItemID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id RevisionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PassportID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ItemID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RevisionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
