package model

import "strings"

type Role string

const (
	RoleSubmitter Role = "Submitter"
	RoleReviewer  Role = "Reviewer"
	RoleApprover  Role = "Approver"
)

// ParseRole case-normalizes value against the fixed role vocabulary. An empty
// value resolves to RoleSubmitter.
func ParseRole(value string) (Role, bool) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(strings.TrimPrefix(value, "ROLE_"), "role_")
	if value == "" {
		return RoleSubmitter, true
	}
	for _, role := range []Role{RoleSubmitter, RoleReviewer, RoleApprover} {
		if strings.EqualFold(string(role), value) {
			return role, true
		}
	}
	return Role(value), false
}
