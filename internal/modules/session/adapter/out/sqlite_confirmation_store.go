package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
	apperrors "mentorpay/internal/platform/errors"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type SQLiteConfirmationStore struct {
	db *sql.DB
}

func NewSQLiteConfirmationStore(dbPath string) (*SQLiteConfirmationStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteConfirmationStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var _ sessionout.ConfirmationRepository = (*SQLiteConfirmationStore)(nil)

func (s *SQLiteConfirmationStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteConfirmationStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS payment_confirmations (
  session_id TEXT PRIMARY KEY,
  payer_address TEXT NOT NULL,
  mentor_address TEXT NOT NULL,
  token_symbol TEXT NOT NULL,
  token_network TEXT NOT NULL,
  token_decimals INTEGER NOT NULL,
  total_amount TEXT NOT NULL,
  released_amount TEXT NOT NULL,
  progress_percentage INTEGER NOT NULL,
  payer_presence_ms INTEGER NOT NULL,
  payer_presence_percentage REAL NOT NULL,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL,
  status_reason TEXT,
  refund_requested INTEGER NOT NULL,
  refund_reason TEXT,
  tx_reference TEXT,
  scheduled_start TEXT NOT NULL,
  start_time TEXT,
  ended_at TEXT,
  report_path TEXT
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create payment_confirmations table: %w", err)
	}
	return nil
}

func (s *SQLiteConfirmationStore) Save(ctx context.Context, c domain.Confirmation) error {
	const stmt = `
INSERT INTO payment_confirmations (
  session_id, payer_address, mentor_address, token_symbol, token_network, token_decimals,
  total_amount, released_amount, progress_percentage, payer_presence_ms, payer_presence_percentage,
  payment_method, status, status_reason, refund_requested, refund_reason, tx_reference,
  scheduled_start, start_time, ended_at, report_path)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
  released_amount=excluded.released_amount,
  progress_percentage=excluded.progress_percentage,
  payer_presence_ms=excluded.payer_presence_ms,
  payer_presence_percentage=excluded.payer_presence_percentage,
  payment_method=excluded.payment_method,
  status=excluded.status,
  status_reason=excluded.status_reason,
  refund_requested=excluded.refund_requested,
  refund_reason=excluded.refund_reason,
  tx_reference=excluded.tx_reference,
  start_time=excluded.start_time,
  ended_at=excluded.ended_at,
  report_path=excluded.report_path;
`
	_, err := s.db.ExecContext(ctx, stmt,
		c.SessionID,
		c.PayerAddress,
		c.MentorAddress,
		c.Token.Symbol,
		c.Token.Network,
		c.Token.Decimals,
		c.TotalAmount.String(),
		c.ReleasedAmount.String(),
		c.ProgressPercentage,
		c.PayerPresence.Milliseconds(),
		c.PayerPresencePercent,
		string(c.PaymentMethod),
		string(c.Status),
		c.StatusReason,
		c.RefundRequested,
		string(c.RefundReason),
		c.TxReference,
		formatTime(c.ScheduledStart),
		formatTime(c.StartTime),
		formatTime(c.EndedAt),
		c.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("save confirmation: %w", err)
	}
	return nil
}

const selectConfirmation = `
SELECT session_id, payer_address, mentor_address, token_symbol, token_network, token_decimals,
  total_amount, released_amount, progress_percentage, payer_presence_ms, payer_presence_percentage,
  payment_method, status, status_reason, refund_requested, refund_reason, tx_reference,
  scheduled_start, start_time, ended_at, report_path
FROM payment_confirmations`

func (s *SQLiteConfirmationStore) Get(ctx context.Context, sessionID string) (domain.Confirmation, error) {
	row := s.db.QueryRowContext(ctx, selectConfirmation+` WHERE session_id = ?`, sessionID)
	c, err := scanConfirmation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Confirmation{}, apperrors.ErrNotFound
	}
	if err != nil {
		return domain.Confirmation{}, err
	}
	return c, nil
}

func (s *SQLiteConfirmationStore) List(ctx context.Context) ([]domain.Confirmation, error) {
	rows, err := s.db.QueryContext(ctx, selectConfirmation+` ORDER BY ended_at DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()
	items := []domain.Confirmation{}
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmations: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfirmation(row scanner) (domain.Confirmation, error) {
	var (
		c            domain.Confirmation
		total        string
		released     string
		presenceMS   int64
		method       string
		status       string
		reason       sql.NullString
		refundReason sql.NullString
		txRef        sql.NullString
		scheduled    sql.NullString
		started      sql.NullString
		ended        sql.NullString
		path         sql.NullString
	)
	err := row.Scan(
		&c.SessionID, &c.PayerAddress, &c.MentorAddress,
		&c.Token.Symbol, &c.Token.Network, &c.Token.Decimals,
		&total, &released, &c.ProgressPercentage, &presenceMS, &c.PayerPresencePercent,
		&method, &status, &reason, &c.RefundRequested, &refundReason, &txRef,
		&scheduled, &started, &ended, &path,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Confirmation{}, err
		}
		return domain.Confirmation{}, fmt.Errorf("scan confirmation: %w", err)
	}
	if c.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return domain.Confirmation{}, fmt.Errorf("decode total amount: %w", err)
	}
	if c.ReleasedAmount, err = decimal.NewFromString(released); err != nil {
		return domain.Confirmation{}, fmt.Errorf("decode released amount: %w", err)
	}
	c.PayerPresence = time.Duration(presenceMS) * time.Millisecond
	c.PaymentMethod = domain.PaymentMethod(method)
	c.Status = domain.Status(status)
	c.StatusReason = reason.String
	c.RefundReason = domain.RefundReason(refundReason.String)
	c.TxReference = txRef.String
	c.ScheduledStart = parseTime(scheduled.String)
	c.StartTime = parseTime(started.String)
	c.EndedAt = parseTime(ended.String)
	c.ReportPath = path.String
	return c, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
