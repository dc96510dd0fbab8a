package in

import (
	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
)

// Errors callers can match with errors.Is.
var (
	ErrInvalidSession          = domain.ErrInvalidSession
	ErrTerminalSession         = domain.ErrTerminalSession
	ErrIllegalTransition       = domain.ErrIllegalTransition
	ErrSecurityHold            = domain.ErrSecurityHold
	ErrNotOnHold               = domain.ErrNotOnHold
	ErrUnknownParticipant      = domain.ErrUnknownParticipant
	ErrParticipantAbsent       = domain.ErrParticipantAbsent
	ErrRecoveryWindowExpired   = domain.ErrRecoveryWindowExpired
	ErrProgressOutOfRange      = domain.ErrProgressOutOfRange
	ErrReleaseExceedsCeiling   = domain.ErrReleaseExceedsCeiling
	ErrInvalidRelease          = domain.ErrInvalidRelease
	ErrOverpaymentRisk         = domain.ErrOverpaymentRisk
	ErrPlatformFeeNotCollected = domain.ErrPlatformFeeNotCollected
	ErrSettlementPending       = domain.ErrSettlementPending

	// ErrTransient marks a settlement failure that may succeed on retry.
	ErrTransient = sessionout.ErrTransient
)
