package session

import "github.com/rainbowkidsrealm/jaja2-sub000/core/user"

// Profile is the role specific part of a Session.
// Its Role must always equal the Session's user role.
type Profile interface {
	Role() user.Role
}

type AdminProfile struct {
	Department string `json:"department"`
}

type TeacherProfile struct {
	Qualification   string `json:"qualification"`
	ExperienceYears int    `json:"experience_years"`
}

type ParentProfile struct {
	Occupation string `json:"occupation"`
}

func (AdminProfile) Role() user.Role   { return user.RoleAdmin }
func (TeacherProfile) Role() user.Role { return user.RoleTeacher }
func (ParentProfile) Role() user.Role  { return user.RoleParent }

// PlaceholderProfile builds the profile attached to a new session from the role tag alone.
// The API does not expose profiles yet, so this is a deterministic stand-in, not the
// authoritative record of the user; nil is returned for unknown roles.
func PlaceholderProfile(role user.Role) Profile {
	switch role {
	case user.RoleAdmin:
		return AdminProfile{Department: "Administration"}
	case user.RoleTeacher:
		return TeacherProfile{Qualification: "Not provided"}
	case user.RoleParent:
		return ParentProfile{Occupation: "Not provided"}
	default:
		return nil
	}
}
