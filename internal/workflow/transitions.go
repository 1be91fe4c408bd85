// Package workflow owns the assistance application status machine: the
// transition table, role capabilities and visibility, interview scheduling,
// urgency and the Service that applies actions against persistence.
package workflow

import (
	"sort"

	"assistance-workflow/internal/models"
)

// Action is a staff action requested against an application.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionForward Action = "forward"
	ActionRelease Action = "release"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionForward, ActionRelease:
		return true
	}
	return false
}

type rule struct {
	from []models.Status
	to   models.Status

	needsInterview      bool
	needsReason         bool
	needsStaffSignature bool
	stampsRelease       bool
}

func (r rule) allows(s models.Status) bool {
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

// transitions is the single authoritative table of role actions.
var transitions = map[models.Role]map[Action]rule{
	models.RoleAdmin: {
		ActionApprove: {
			from:           []models.Status{models.StatusPending},
			to:             models.StatusApproved,
			needsInterview: true,
		},
		ActionReject: {
			from:        []models.Status{models.StatusPending, models.StatusApproved, models.StatusReadyForRelease},
			to:          models.StatusRejected,
			needsReason: true,
		},
		ActionForward: {
			from:                []models.Status{models.StatusApproved},
			to:                  models.StatusWaitingHead,
			needsStaffSignature: true,
		},
		ActionRelease: {
			from:          []models.Status{models.StatusReadyForRelease},
			to:            models.StatusReleased,
			stampsRelease: true,
		},
	},
	models.RoleApprover: {
		ActionApprove: {
			from: []models.Status{models.StatusWaitingHead},
			to:   models.StatusWaitingMayor,
		},
		ActionReject: {
			from:        []models.Status{models.StatusWaitingHead},
			to:          models.StatusRejected,
			needsReason: true,
		},
	},
	models.RoleCityMayor: {
		ActionApprove: {
			from: []models.Status{models.StatusWaitingMayor},
			to:   models.StatusReadyForRelease,
		},
		ActionReject: {
			from:        []models.Status{models.StatusWaitingMayor},
			to:          models.StatusRejected,
			needsReason: true,
		},
	},
}

// signatureStates is the state in which each role may attach its signature.
var signatureStates = map[models.Role]models.Status{
	models.RoleAdmin:     models.StatusApproved,
	models.RoleApprover:  models.StatusWaitingHead,
	models.RoleCityMayor: models.StatusWaitingMayor,
}

func lookup(role models.Role, action Action) (rule, bool) {
	actions, ok := transitions[role]
	if !ok {
		return rule{}, false
	}
	r, ok := actions[action]
	return r, ok
}

// CanAct reports whether role may perform action on an application in state.
func CanAct(role models.Role, state models.Status, action Action) bool {
	r, ok := lookup(role, action)
	return ok && r.allows(state)
}

// ActionsFor lists the actions role may take in state, sorted by name.
func ActionsFor(role models.Role, state models.Status) []Action {
	var out []Action
	for action, r := range transitions[role] {
		if r.allows(state) {
			out = append(out, action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Target returns the state the action leads to, if role owns the action at all.
func Target(role models.Role, action Action) (models.Status, bool) {
	r, ok := lookup(role, action)
	return r.to, ok
}

// Owner returns the sole role authorized to act in state. Terminal states
// have no owner.
func Owner(state models.Status) (models.Role, bool) {
	var owner models.Role
	for _, role := range models.StaffRoles {
		for _, r := range transitions[role] {
			if !r.allows(state) {
				continue
			}
			if owner != "" && owner != role {
				return "", false
			}
			owner = role
		}
	}
	return owner, owner != ""
}

// VisibleTo returns the states a role's dashboard lists, in workflow order.
func VisibleTo(role models.Role) []models.Status {
	var out []models.Status
	for _, s := range models.AllStatuses {
		if owner, ok := Owner(s); ok && owner == role {
			out = append(out, s)
		}
	}
	return out
}

// SignatureState returns the state in which role attaches its signature.
func SignatureState(role models.Role) (models.Status, bool) {
	s, ok := signatureStates[role]
	return s, ok
}
