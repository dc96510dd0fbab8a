package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confirmation is the record kept once a session ends, for the mentor's
// payment review.
type Confirmation struct {
	SessionID            string          `json:"session_id"`
	PayerAddress         string          `json:"payer_address"`
	MentorAddress        string          `json:"mentor_address"`
	Token                Token           `json:"token"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	ReleasedAmount       decimal.Decimal `json:"released_amount"`
	ProgressPercentage   int             `json:"progress_percentage"`
	PayerPresence        time.Duration   `json:"payer_presence"`
	PayerPresencePercent float64         `json:"payer_presence_percent"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	Status               Status          `json:"status"`
	StatusReason         string          `json:"status_reason"`
	RefundRequested      bool            `json:"refund_requested"`
	RefundReason         RefundReason    `json:"refund_reason,omitempty"`
	TxReference          string          `json:"tx_reference,omitempty"`
	ScheduledStart       time.Time       `json:"scheduled_start"`
	StartTime            time.Time       `json:"start_time"`
	EndedAt              time.Time       `json:"ended_at"`
	ReportPath           string          `json:"report_path,omitempty"`
}

func (e *Engine) Confirmation(now time.Time) Confirmation {
	s := e.state.Session
	snap := e.Snapshot(now)
	return Confirmation{
		SessionID:            s.ID,
		PayerAddress:         s.PayerAddress,
		MentorAddress:        s.MentorAddress,
		Token:                s.Token,
		TotalAmount:          s.TotalAmount,
		ReleasedAmount:       s.ReleasedAmount,
		ProgressPercentage:   snap.ProgressPercentage,
		PayerPresence:        e.state.Payer.PresentDuration(e.effectiveNow(now)),
		PayerPresencePercent: snap.PayerPresencePercent,
		PaymentMethod:        snap.PaymentMethod,
		Status:               s.Status,
		StatusReason:         s.StatusReason,
		RefundRequested:      s.RefundRequested,
		RefundReason:         s.RefundReason,
		TxReference:          s.LastTxReference,
		ScheduledStart:       s.ScheduledStart,
		StartTime:            s.StartTime,
		EndedAt:              s.EndedAt,
	}
}
