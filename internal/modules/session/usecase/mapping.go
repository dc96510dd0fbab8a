package usecase

import (
	"mentorpay/internal/modules/session/domain"
	sessiondto "mentorpay/internal/modules/session/dto"
)

func toSnapshotOutput(snap domain.Snapshot) sessiondto.SnapshotOutput {
	return sessiondto.SnapshotOutput{
		SessionID:            snap.SessionID,
		PayerAddress:         snap.PayerAddress,
		MentorAddress:        snap.MentorAddress,
		Status:               string(snap.Status),
		StatusReason:         snap.StatusReason,
		IsPaused:             snap.IsPaused,
		OnHold:               snap.OnHold,
		RefundRequested:      snap.RefundRequested,
		Processing:           snap.Processing,
		ProgressPercentage:   snap.ProgressPercentage,
		ReleasedAmount:       snap.ReleasedAmount.String(),
		TargetAmount:         snap.TargetAmount.String(),
		AvailableForRelease:  snap.AvailableForRelease.String(),
		Ceiling:              snap.Ceiling.String(),
		TotalAmount:          snap.TotalAmount.String(),
		Token:                snap.Token.String(),
		PaymentMethod:        string(snap.PaymentMethod),
		ElapsedMinutes:       snap.ElapsedMinutes,
		CompletionPercent:    snap.CompletionPercent,
		ScheduledMinutes:     snap.ScheduledMinutes,
		PayerPresent:         snap.PayerPresent,
		PayerPresenceMinutes: snap.PayerPresenceMinutes,
		PayerPresencePercent: snap.PayerPresencePercent,
		MilestoneReached:     snap.MilestoneReached,
		Final:                snap.Final,
		SettlementPending:    snap.SettlementPending,
		At:                   snap.At,
	}
}

func snapshotFromConfirmation(c domain.Confirmation) sessiondto.SnapshotOutput {
	return sessiondto.SnapshotOutput{
		SessionID:            c.SessionID,
		PayerAddress:         c.PayerAddress,
		MentorAddress:        c.MentorAddress,
		Status:               string(c.Status),
		StatusReason:         c.StatusReason,
		RefundRequested:      c.RefundRequested,
		ProgressPercentage:   c.ProgressPercentage,
		ReleasedAmount:       c.ReleasedAmount.String(),
		TargetAmount:         c.ReleasedAmount.String(),
		AvailableForRelease:  "0",
		TotalAmount:          c.TotalAmount.String(),
		Token:                c.Token.String(),
		PaymentMethod:        string(c.PaymentMethod),
		PayerPresenceMinutes: presenceMinutes(c),
		PayerPresencePercent: c.PayerPresencePercent,
		MilestoneReached:     c.ProgressPercentage == 100,
		Final:                true,
		At:                   c.EndedAt,
	}
}

func toConfirmationOutput(c domain.Confirmation) sessiondto.ConfirmationOutput {
	return sessiondto.ConfirmationOutput{
		SessionID:            c.SessionID,
		PayerAddress:         c.PayerAddress,
		MentorAddress:        c.MentorAddress,
		Token:                c.Token.String(),
		TotalAmount:          c.TotalAmount.String(),
		ReleasedAmount:       c.ReleasedAmount.String(),
		ProgressPercentage:   c.ProgressPercentage,
		PayerPresenceMinutes: presenceMinutes(c),
		PayerPresencePercent: c.PayerPresencePercent,
		PaymentMethod:        string(c.PaymentMethod),
		Status:               string(c.Status),
		StatusReason:         c.StatusReason,
		RefundRequested:      c.RefundRequested,
		TxReference:          c.TxReference,
		EndedAt:              c.EndedAt,
		ReportPath:           c.ReportPath,
	}
}

func presenceMinutes(c domain.Confirmation) float64 {
	return float64(c.PayerPresence.Milliseconds()) / 60000
}
