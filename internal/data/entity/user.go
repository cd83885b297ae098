package entity

import "github.com/google/uuid"

type UserType string

const (
	UserTypeVisitor            UserType = "visitor"
	UserTypeOrganizationMember UserType = "organization_member"
	UserTypeWatchman           UserType = "watchman"
	UserTypeAdmin              UserType = "admin"
)

// User is owned by the identity service; the booking core only reads it.
type User struct {
	Base
	Name           string     `db:"name"`
	Email          string     `db:"email"`
	UserType       UserType   `db:"user_type"`
	OrganizationID *uuid.UUID `db:"organization_id"`
}

// IsMemberOf reports whether parking at orgID is free for this user.
func (u *User) IsMemberOf(orgID uuid.UUID) bool {
	return u.UserType == UserTypeOrganizationMember &&
		u.OrganizationID != nil && *u.OrganizationID == orgID
}
