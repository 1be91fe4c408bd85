package models

import "fmt"

// Status is the lifecycle state of an assistance application. The string
// values are stored verbatim and shared with existing dashboard consumers.
type Status string

const (
	StatusPending         Status = "Pending for approval"
	StatusApproved        Status = "Approved"
	StatusWaitingHead     Status = "Waiting for approval of head"
	StatusWaitingMayor    Status = "Waiting for approval of city mayor"
	StatusReadyForRelease Status = "Ready for release"
	StatusReleased        Status = "Released"
	StatusRejected        Status = "Rejected"
)

// AllStatuses lists the closed status set in workflow order.
var AllStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusWaitingHead,
	StatusWaitingMayor,
	StatusReadyForRelease,
	StatusReleased,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(AllStatuses))
	for _, s := range AllStatuses {
		set[s] = struct{}{}
	}
	return set
}()

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a stored or requested value to a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown application status %q", v)
	}
	return s, nil
}

// Role is a staff role acting on applications.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleApprover  Role = "approver"
	RoleCityMayor Role = "city_mayor"
	// RoleClient signs at submission only; it never drives a transition.
	RoleClient Role = "client"
)

// StaffRoles are the roles allowed to act through the workflow.
var StaffRoles = []Role{RoleAdmin, RoleApprover, RoleCityMayor}

// Valid reports whether r is a known staff role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleApprover, RoleCityMayor:
		return true
	}
	return false
}

// ParseRole accepts the canonical role names plus the "mayor" shorthand used
// by the dashboards.
func ParseRole(v string) (Role, error) {
	switch v {
	case "mayor", "city-mayor", "citymayor":
		return RoleCityMayor, nil
	}
	r := Role(v)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", v)
	}
	return r, nil
}
