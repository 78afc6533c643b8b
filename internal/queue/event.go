// Package queue defines the audit events exchanged over RabbitMQ together
// with their publisher and consumer.
package queue

import "time"

// Event types carried in AuthEvent.Type.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventUserLoggedOut  = "user.logged_out"
	EventTokenRefreshed = "token.refreshed"
	EventUserRemoved    = "user.removed"
)

// AuthEvent is published after a session or account change. It carries
// enough for the audit log without querying the database.
type AuthEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	UserName   string    `json:"user_name"`
	ActorID    uint      `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
