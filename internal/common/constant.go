// Package common contains shared constants and sentinel errors used across
// Captain's Log components.
package common

import "time"

const (
	// AuthorizationHeaderName carries the bearer session token on API requests.
	AuthorizationHeaderName = "Authorization"

	// SessionDuration is the default lifetime of a session token.
	SessionDuration = 7 * 24 * time.Hour

	// ResetTokenDuration is how long a password reset token stays redeemable.
	ResetTokenDuration = 24 * time.Hour

	// MinPasswordLength is the shortest password accepted on register/reset/update.
	MinPasswordLength = 8

	// SearchDebounce is the quiescence window before a search query is dispatched.
	SearchDebounce = 300 * time.Millisecond

	// AudioContentType is the container produced by the capture sources.
	AudioContentType = "audio/webm"
)
