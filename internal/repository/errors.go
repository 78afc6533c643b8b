// Package repository defines the gorm-backed stores and the error values
// they share. Higher layers use these sentinels to tell failure scenarios
// apart without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup or targeted delete matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// constraint (user name, role name, or the one-token-per-user key).
var ErrDuplicate = errors.New("duplicate")
