package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
	"mentorpay/internal/platform/markdown"
	"mentorpay/internal/platform/slug"
)

const reportTimeFormat = "2006-01-02T15:04:05Z07:00"

// MarkdownReportStore writes one markdown note per finished session under
// reports/YYYY/MM/DD.
type MarkdownReportStore struct {
	dir string
}

func NewMarkdownReportStore(dir string) *MarkdownReportStore {
	return &MarkdownReportStore{dir: dir}
}

var _ sessionout.ReportStore = (*MarkdownReportStore)(nil)

func (s *MarkdownReportStore) Save(_ context.Context, c domain.Confirmation, history []domain.Transition) (string, error) {
	date := c.EndedAt
	if date.IsZero() {
		date = c.ScheduledStart
	}
	dir := filepath.Join(s.dir, date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.md", date.Format("150405"), slug.Make(c.SessionID))
	path := filepath.Join(dir, name)

	fields := []markdown.Field{
		{Key: "schema_version", Value: domain.SchemaVersion},
		{Key: "session_id", Value: c.SessionID},
		{Key: "payer", Value: c.PayerAddress},
		{Key: "mentor", Value: c.MentorAddress},
		{Key: "token", Value: c.Token.String()},
		{Key: "total_amount", Value: c.TotalAmount.String()},
		{Key: "released_amount", Value: c.ReleasedAmount.String()},
		{Key: "progress_percentage", Value: c.ProgressPercentage},
		{Key: "payer_presence_minutes", Value: float64(c.PayerPresence.Milliseconds()) / 60000},
		{Key: "payer_presence_percentage", Value: c.PayerPresencePercent},
		{Key: "payment_method", Value: string(c.PaymentMethod)},
		{Key: "status", Value: string(c.Status)},
		{Key: "status_reason", Value: c.StatusReason},
		{Key: "refund_requested", Value: c.RefundRequested},
		{Key: "tx_reference", Value: c.TxReference},
		{Key: "started_at", Value: formatReportTime(c.StartTime)},
		{Key: "ended_at", Value: formatReportTime(c.EndedAt)},
	}
	rendered, err := markdown.RenderFrontmatter(fields, reportBody(c, history))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session report: %w", err)
	}
	return path, nil
}

func reportBody(c domain.Confirmation, history []domain.Transition) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "# Session %s\n\n", c.SessionID)
	fmt.Fprintf(&b, "- Status: %s (%s)\n", c.Status, c.StatusReason)
	fmt.Fprintf(&b, "- Released: %s of %s %s\n", c.ReleasedAmount, c.TotalAmount, c.Token.Symbol)
	fmt.Fprintf(&b, "- Progress: %d%% via %s\n", c.ProgressPercentage, c.PaymentMethod)
	if c.RefundRequested {
		fmt.Fprintf(&b, "- Refund: %s\n", c.RefundReason)
	}
	b.WriteString("\n## Timeline\n\n")
	if len(history) == 0 {
		b.WriteString("No transitions recorded.\n")
	}
	for _, tr := range history {
		fmt.Fprintf(&b, "- %s %s -> %s (%s)\n", tr.At.Format(reportTimeFormat), tr.From, tr.To, tr.Reason)
	}
	return b.String()
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(reportTimeFormat)
}
