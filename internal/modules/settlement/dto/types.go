package dto

import "time"

type ReleaseInput struct {
	SessionID   string
	Payee       string
	TokenSymbol string
	Network     string
	Cumulative  string
}

type ReleaseOutput struct {
	SessionID   string
	TxReference string
	Cumulative  string
	Delta       string
	Replayed    bool
	Backend     string
}

type RefundInput struct {
	SessionID   string
	Payer       string
	TokenSymbol string
	Network     string
	Reason      string
}

type RefundOutput struct {
	SessionID   string
	TxReference string
	Replayed    bool
	Backend     string
}

type DoctorResult struct {
	Backend         string
	Name            string
	Version         string
	Configured      bool
	Enabled         bool
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Error           string
}

type LedgerEntryOutput struct {
	SessionID    string
	Payee        string
	Payer        string
	Token        string
	Released     string
	TxReference  string
	Releases     int
	Refunded     bool
	RefundReason string
	RefundTx     string
	Backend      string
	UpdatedAt    time.Time
}
