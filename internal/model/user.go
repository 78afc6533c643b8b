package model

import (
	"time"

	"gorm.io/datatypes"
)

// User represents an account stored in the `users` table.
//
// Fields:
//
//	ID        – primary key, assigned on creation and never changed.
//	Name      – unique login name, always stored lowercase.
//	Password  – bcrypt hash; never serialized.
//	IsAdmin   – grants role and user management.
//	Roles     – ascending, duplicate-free list of role ids.
//	CreatedAt – timestamp of creation.
type User struct {
	ID        uint                      `gorm:"primaryKey" json:"id"`
	Name      string                    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Password  string                    `gorm:"size:255;not null" json:"-"`
	IsAdmin   bool                      `gorm:"not null;default:false" json:"is_admin"`
	Roles     datatypes.JSONSlice[uint] `json:"roles"`
	CreatedAt time.Time                 `json:"created_at"`
}

// RoleIDs returns the role ids as a plain slice.
func (u *User) RoleIDs() []uint {
	return []uint(u.Roles)
}

// Summary is the minimal identity carried in tokens and credential bundles.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name}
}

// UserSummary is the {id, name} pair exposed to clients after authentication.
type UserSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}
