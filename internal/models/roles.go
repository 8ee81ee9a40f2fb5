package models

import (
	"fmt"
	"slices"
	"strings"
)

// Role is a capability granted to a user.
type Role string

const (
	RoleCustomer Role = "Customer"
	RoleAdmin    Role = "Admin"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "customer":
		return RoleCustomer, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", name)
	}
}

// RoleSet is a sorted, de-duplicated set of roles.
type RoleSet []Role

// NewRoleSet normalizes roles into a RoleSet.
func NewRoleSet(roles ...Role) RoleSet {
	set := slices.Clone(roles)
	slices.Sort(set)
	return slices.Compact(set)
}

// ParseRoleSet parses role names; an empty input yields the default customer set.
func ParseRoleSet(names []string) (RoleSet, error) {
	if len(names) == 0 {
		return NewRoleSet(RoleCustomer), nil
	}
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return NewRoleSet(roles...), nil
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	return slices.Contains(s, role)
}

// AdminOnly reports whether the set is exactly {Admin}.
func (s RoleSet) AdminOnly() bool {
	return len(s) == 1 && s[0] == RoleAdmin
}

// Strings returns the role names, for persistence.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}
