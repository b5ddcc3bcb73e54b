// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"strconv"
)

// NullInt64FromID converts a row id into sql.NullInt64. Ids <= 0 are
// treated as absent.
func NullInt64FromID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

// NullStringFromValue creates a sql.NullString from a string value.
// Returns a valid NullString if the string is non-empty, otherwise returns an invalid one.
func NullStringFromValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ParsePositiveInt64 parses s as a base-10 id. It reports false for empty,
// malformed, zero or negative input.
func ParsePositiveInt64(s string) (int64, bool) {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil || val <= 0 {
		return 0, false
	}
	return val, true
}

// ClampInt bounds v to [lo, hi], using def when v is zero.
func ClampInt(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	return max(lo, min(v, hi))
}
