// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the shared domain vocabulary: admin roles, audit
// actions and event log levels and categories.
package model

// Admin roles, lowest privilege first.
const (
	RoleAnalyst    = "ANALYST"
	RoleEditor     = "EDITOR"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []string{RoleAnalyst, RoleEditor, RoleAdmin, RoleSuperAdmin}

var roleLevel = map[string]int{
	RoleAnalyst:    1,
	RoleEditor:     2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleLevel[role]
	return ok
}

// RoleAtLeast reports whether role grants at least the privileges of min.
// Unknown roles grant nothing.
func RoleAtLeast(role, min string) bool {
	have, ok := roleLevel[role]
	if !ok {
		return false
	}
	return have >= roleLevel[min]
}
