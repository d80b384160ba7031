// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

// Email kinds published on the email.send queue.
const (
	EmailKindPasswordReset = "password_reset"
	EmailKindVerifyEmail   = "verify_email"
)

// EmailEvent is published when a password-reset or verification mail is
// requested. It carries the capability token so the consumer can render the
// link without querying the primary database.
type EmailEvent struct {
	Kind        string `json:"kind"`
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at"`
}
