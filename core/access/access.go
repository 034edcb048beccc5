// Package access maps a role to the navigation targets and actions it may use.
// Every function is pure; unknown roles get nothing.
package access

import (
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

// Target is a role-gated route.
type Target string

// Targets
const (
	Dashboard  Target = "/dashboard"
	Students   Target = "/students"
	Teachers   Target = "/teachers"
	Parents    Target = "/parents"
	Classes    Target = "/classes"
	Subjects   Target = "/subjects"
	Marks      Target = "/marks"
	Attendance Target = "/attendance"
	Homework   Target = "/homework"
	Messages   Target = "/messages"
	Reports    Target = "/reports"
	Settings   Target = "/settings"
)

// Action is a mutation affordance offered on a target.
type Action string

// Actions
const (
	Create         Action = "create"
	Edit           Action = "edit"
	Delete         Action = "delete"
	MarkAttendance Action = "mark-attendance"
	SendMessage    Action = "send-message"
)

type Capability struct {
	Target Target `json:"target"`
	Label  string `json:"label"`
}

var (
	labels = map[Target]string{
		Dashboard:  "Dashboard",
		Students:   "Students",
		Teachers:   "Teachers",
		Parents:    "Parents",
		Classes:    "Classes",
		Subjects:   "Subjects",
		Marks:      "Marks",
		Attendance: "Attendance",
		Homework:   "Homework",
		Messages:   "Messages",
		Reports:    "Reports",
		Settings:   "Settings",
	}

	// navigation order per role
	navigation = map[user.Role][]Target{
		user.RoleAdmin: {
			Dashboard, Students, Teachers, Parents, Classes, Subjects,
			Marks, Attendance, Homework, Messages, Reports, Settings,
		},
		user.RoleTeacher: {
			Dashboard, Students, Classes, Subjects, Marks, Attendance, Homework, Messages, Reports, Settings,
		},
		user.RoleParent: {
			Dashboard, Students, Marks, Attendance, Homework, Messages, Settings,
		},
	}

	people = []Action{Create, Edit, Delete}

	actions = map[user.Role]map[Target][]Action{
		user.RoleAdmin: {
			Students:   people,
			Teachers:   people,
			Parents:    people,
			Classes:    people,
			Subjects:   people,
			Marks:      {Edit, Delete},
			Attendance: {MarkAttendance, Edit, Delete},
			Homework:   {Delete},
			Messages:   {SendMessage, Delete},
		},
		user.RoleTeacher: {
			Marks:      {Create, Edit, Delete},
			Attendance: {MarkAttendance, Edit},
			Homework:   {Create, Edit, Delete},
			Messages:   {SendMessage},
		},
		user.RoleParent: {
			Messages: {SendMessage},
		},
	}
)

// Capabilities returns the ordered navigation targets of the role.
// It returns an empty (non-nil) slice for an unknown role.
func Capabilities(role user.Role) []Capability {
	targets := navigation[role]
	caps := make([]Capability, 0, len(targets))
	for _, t := range targets {
		caps = append(caps, Capability{Target: t, Label: labels[t]})
	}
	return caps
}

func CanView(role user.Role, target Target) bool {
	for _, t := range navigation[role] {
		if t == target {
			return true
		}
	}
	return false
}

// CanPerform reports whether the role may perform the action on the target.
// A target the role cannot view offers no action.
func CanPerform(role user.Role, target Target, action Action) bool {
	if !CanView(role, target) {
		return false
	}
	for _, a := range actions[role][target] {
		if a == action {
			return true
		}
	}
	return false
}

// Actions returns the actions the role may perform on the target, in display order.
func Actions(role user.Role, target Target) []Action {
	if !CanView(role, target) {
		return []Action{}
	}
	return append([]Action{}, actions[role][target]...)
}

// ParseTarget accepts "students" as well as "/students".
func ParseTarget(s string) (Target, bool) {
	if s == "" {
		return "", false
	}
	if s[0] != '/' {
		s = "/" + s
	}
	t := Target(s)
	_, ok := labels[t]
	return t, ok
}

// Label returns the display label of the target, "" if unknown.
func (t Target) Label() string { return labels[t] }

// Resource is the target without its leading slash, as used by the CRUD endpoints.
func (t Target) Resource() string {
	if len(t) > 0 && t[0] == '/' {
		return string(t[1:])
	}
	return string(t)
}
