package model

import "time"

// Token is the single outstanding refresh token of a user. UserID is the
// primary key, so the database itself rejects a second row for the same
// user. Hash holds the SHA-256 hex digest of the raw token; the raw value
// is only ever returned to the client.
type Token struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	Hash      string    `gorm:"column:token;size:64;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TokenCredentials is the transient bundle returned after register, login
// and refresh. It is never persisted.
type TokenCredentials struct {
	User  UserSummary `json:"user"`
	Token TokenPair   `json:"token"`
}

// TokenPair holds a freshly signed access and refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
