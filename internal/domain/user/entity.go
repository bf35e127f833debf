package user

import "strings"

type Role string

const (
	RoleEmployee      Role = "employee"      // Receives and reviews own statements
	RoleHRAdmin       Role = "hr_admin"      // Prepares statements and resolves disputes
	RoleAdministrator Role = "administrator" // Approves statements for delivery
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleHRAdmin, RoleAdministrator:
		return true
	}
	return false
}

// Actor is the authenticated caller of an engine operation.
// Identity and role are resolved outside this service (JWT claims).
type Actor struct {
	ID        string
	Role      Role
	FirstName string
	LastName  string
}

// IsHR checks if actor can prepare payroll statements
func (a Actor) IsHR() bool {
	return a.Role == RoleHRAdmin || a.Role == RoleAdministrator
}

// IsAdministrator checks if actor can approve statements
func (a Actor) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}

// NormalizedName returns lower-cased "first last" with collapsed whitespace.
// Empty when either part is missing.
func NormalizedName(firstName, lastName string) string {
	first := strings.Join(strings.Fields(strings.ToLower(firstName)), " ")
	last := strings.Join(strings.Fields(strings.ToLower(lastName)), " ")
	if first == "" || last == "" {
		return ""
	}
	return first + " " + last
}

// SamePerson compares two identities by account id, then by normalized name
// to catch one person holding two accounts.
func SamePerson(actorID, actorFirst, actorLast, otherID, otherFirst, otherLast string) bool {
	if actorID != "" && actorID == otherID {
		return true
	}
	a := NormalizedName(actorFirst, actorLast)
	return a != "" && a == NormalizedName(otherFirst, otherLast)
}
