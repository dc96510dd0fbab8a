package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPluginDisabled        = errors.New("settlement plugin is disabled")
	ErrChecksumMismatch      = errors.New("settlement plugin checksum mismatch")
	ErrPluginTimeout         = errors.New("settlement plugin timeout")
	ErrInvalidRequest        = errors.New("invalid settlement request")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrContractReverted      = errors.New("contract reverted")
	ErrNetwork               = errors.New("network failure")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Manifest describes an external settlement plugin binary.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Binary  string `json:"binary"`
	SHA256  string `json:"sha256"`
	Enabled bool   `json:"enabled"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("settlement plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("settlement plugin version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("settlement plugin binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("settlement plugin sha256 must be lowercase 64-char hex")
	}
	return nil
}

// Failure codes carried over the plugin wire.
const (
	FailureInsufficientAllowance = "insufficient_allowance"
	FailureContractReverted      = "contract_reverted"
	FailureNetwork               = "network"
)

// Failure is a settlement error with a retry hint.
type Failure struct {
	Kind   error
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return f.Kind.Error()
	}
	return f.Kind.Error() + ": " + f.Detail
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

// Temporary reports whether retrying the same request may succeed.
func (f *Failure) Temporary() bool {
	return errors.Is(f.Kind, ErrNetwork) || errors.Is(f.Kind, ErrPluginTimeout)
}

func NewFailure(kind error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// FailureFromCode maps a wire failure code back to its error.
func FailureFromCode(code, detail string) error {
	switch code {
	case "":
		return nil
	case FailureInsufficientAllowance:
		return &Failure{Kind: ErrInsufficientAllowance, Detail: detail}
	case FailureContractReverted:
		return &Failure{Kind: ErrContractReverted, Detail: detail}
	case FailureNetwork:
		return &Failure{Kind: ErrNetwork, Detail: detail}
	default:
		return &Failure{Kind: ErrContractReverted, Detail: code + ": " + detail}
	}
}

type ReleaseRequest struct {
	SessionID  string
	Payee      string
	Symbol     string
	Network    string
	Cumulative decimal.Decimal
}

func (r ReleaseRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Payee) == "" {
		return fmt.Errorf("%w: payee is required", ErrInvalidRequest)
	}
	if r.Symbol == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}
	if !r.Cumulative.IsPositive() {
		return fmt.Errorf("%w: cumulative amount must be positive", ErrInvalidRequest)
	}
	return nil
}

type RefundRequest struct {
	SessionID string
	Payer     string
	Symbol    string
	Network   string
	Reason    string
}

func (r RefundRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Payer) == "" {
		return fmt.Errorf("%w: payer is required", ErrInvalidRequest)
	}
	if r.Reason == "" {
		return fmt.Errorf("%w: refund reason is required", ErrInvalidRequest)
	}
	return nil
}

// LedgerEntry is the settlement record of one session. Released is the
// cumulative amount paid to the payee so far.
type LedgerEntry struct {
	SessionID    string          `json:"session_id"`
	Payee        string          `json:"payee,omitempty"`
	Payer        string          `json:"payer,omitempty"`
	Token        string          `json:"token"`
	Released     decimal.Decimal `json:"released"`
	TxReference  string          `json:"tx_reference,omitempty"`
	Releases     int             `json:"releases"`
	Refunded     bool            `json:"refunded"`
	RefundReason string          `json:"refund_reason,omitempty"`
	RefundTx     string          `json:"refund_tx,omitempty"`
	Backend      string          `json:"backend"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Covers reports whether a release of cumulative was already settled.
func (e LedgerEntry) Covers(cumulative decimal.Decimal) bool {
	return e.TxReference != "" && cumulative.LessThanOrEqual(e.Released)
}

func TokenLabel(symbol, network string) string {
	if network == "" {
		return symbol
	}
	return symbol + "@" + network
}
