package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	settlementrpc "mentorpay/internal/modules/settlement/adapter/out/rpc"

	"github.com/google/uuid"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/shopspring/decimal"
)

const (
	envLedgerPath = "MENTORPAY_LEDGER_PATH"
	envAllowance  = "MENTORPAY_ALLOWANCE"
)

type record struct {
	Released    decimal.Decimal `json:"released"`
	TxReference string          `json:"tx_reference,omitempty"`
	RefundTx    string          `json:"refund_tx,omitempty"`
}

// server settles against a JSON file so repeated plugin launches share state.
type server struct {
	mu        sync.Mutex
	path      string
	allowance decimal.Decimal
	logger    hclog.Logger
}

func (s *server) GetMetadata(_ context.Context, _ *settlementrpc.Empty) (*settlementrpc.Metadata, error) {
	return &settlementrpc.Metadata{Name: "settlement", Version: "1.0.0", Network: "file-ledger"}, nil
}

func (s *server) Release(_ context.Context, in *settlementrpc.ReleaseRequest) (*settlementrpc.ReleaseResponse, error) {
	cumulative, err := decimal.NewFromString(in.Cumulative)
	if err != nil || !cumulative.IsPositive() {
		return &settlementrpc.ReleaseResponse{Failure: "contract_reverted", Detail: "invalid cumulative amount"}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load()
	if err != nil {
		return nil, err
	}
	rec := ledger[in.SessionID]
	if rec.TxReference != "" && cumulative.LessThanOrEqual(rec.Released) {
		return &settlementrpc.ReleaseResponse{TxReference: rec.TxReference}, nil
	}
	if rec.RefundTx != "" {
		return &settlementrpc.ReleaseResponse{Failure: "contract_reverted", Detail: "session refunded"}, nil
	}
	if !s.allowance.IsZero() && cumulative.GreaterThan(s.allowance) {
		return &settlementrpc.ReleaseResponse{Failure: "insufficient_allowance", Detail: fmt.Sprintf("allowance %s", s.allowance)}, nil
	}
	rec.Released = cumulative
	rec.TxReference = txReference()
	ledger[in.SessionID] = rec
	if err := s.save(ledger); err != nil {
		return nil, err
	}
	s.logger.Info("released", "session_id", in.SessionID, "payee", in.Payee, "cumulative", cumulative.String(), "tx", rec.TxReference)
	return &settlementrpc.ReleaseResponse{TxReference: rec.TxReference}, nil
}

func (s *server) Refund(_ context.Context, in *settlementrpc.RefundRequest) (*settlementrpc.RefundResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load()
	if err != nil {
		return nil, err
	}
	rec := ledger[in.SessionID]
	if rec.RefundTx == "" {
		rec.RefundTx = txReference()
		ledger[in.SessionID] = rec
		if err := s.save(ledger); err != nil {
			return nil, err
		}
		s.logger.Info("refunded", "session_id", in.SessionID, "payer", in.Payer, "reason", in.Reason, "tx", rec.RefundTx)
	}
	return &settlementrpc.RefundResponse{TxReference: rec.RefundTx}, nil
}

func (s *server) load() (map[string]record, error) {
	ledger := map[string]record{}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return ledger, nil
}

func (s *server) save(ledger map[string]record) error {
	raw, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func txReference() string {
	return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{Name: "settlement", Output: os.Stderr, JSONFormat: true})
	path := os.Getenv(envLedgerPath)
	if path == "" {
		path = filepath.Join(os.TempDir(), "mentorpay-settlement-ledger.json")
	}
	allowance := decimal.Zero
	if raw := os.Getenv(envAllowance); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Error("invalid allowance", "value", raw, "error", err)
			os.Exit(1)
		}
		allowance = parsed
	}
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: settlementrpc.HandshakeConfig,
		Plugins:         settlementrpc.PluginMap(&server{path: path, allowance: allowance, logger: logger}),
		GRPCServer:      plugin.DefaultGRPCServer,
		Logger:          logger,
	})
}
