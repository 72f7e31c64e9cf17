package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyPrincipal = "principal"
	ContextKeyRequestID = "request_id"
	SessionCookieName   = "teamwork_session"
	HeaderRequestID     = "X-Request-ID"
)

// Password rules
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores everything past 72 bytes
)

// Team codes
const (
	TeamCodeLength   = 6
	TeamCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	TeamCodeAttempts = 5
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Tasks
const (
	MaxAIGeneratedTasks = 20
	AIRequestTimeout    = 30 * time.Second
)

// Evaluations
const (
	MinGrade = 1
	MaxGrade = 5
)
