package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"mentorpay/internal/modules/settlement/domain"
	"mentorpay/internal/modules/settlement/dto"
	settlementout "mentorpay/internal/modules/settlement/port/out"
	"mentorpay/internal/platform/clock"
	apperrors "mentorpay/internal/platform/errors"
	"mentorpay/internal/platform/id"
	"mentorpay/internal/platform/logging"
)

const BackendLocal = "local"

// SettlementService pays out cumulative release targets and refunds. Every
// request is idempotent against the ledger: a cumulative amount that was
// already settled returns the recorded tx reference.
type SettlementService struct {
	store  settlementout.ManifestStore
	host   settlementout.Host
	ledger settlementout.Ledger
	clock  clock.Clock
	ids    id.Generator
	logger *slog.Logger
	mu     sync.Mutex
}

func NewSettlementService(
	store settlementout.ManifestStore,
	host settlementout.Host,
	ledger settlementout.Ledger,
	clk clock.Clock,
	ids id.Generator,
	logger *slog.Logger,
) *SettlementService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SettlementService{store: store, host: host, ledger: ledger, clock: clk, ids: ids, logger: logger}
}

func (s *SettlementService) Release(ctx context.Context, input dto.ReleaseInput) (dto.ReleaseOutput, error) {
	cumulative, err := decimal.NewFromString(strings.TrimSpace(input.Cumulative))
	if err != nil {
		return dto.ReleaseOutput{}, fmt.Errorf("%w: cumulative amount %q", domain.ErrInvalidRequest, input.Cumulative)
	}
	req := domain.ReleaseRequest{
		SessionID:  strings.TrimSpace(input.SessionID),
		Payee:      strings.TrimSpace(input.Payee),
		Symbol:     input.TokenSymbol,
		Network:    input.Network,
		Cumulative: cumulative,
	}
	if err := req.Validate(); err != nil {
		return dto.ReleaseOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.entry(ctx, req.SessionID)
	if err != nil {
		return dto.ReleaseOutput{}, err
	}
	if entry.Covers(req.Cumulative) {
		return dto.ReleaseOutput{
			SessionID:   req.SessionID,
			TxReference: entry.TxReference,
			Cumulative:  entry.Released.String(),
			Delta:       "0",
			Replayed:    true,
			Backend:     entry.Backend,
		}, nil
	}
	if entry.Refunded {
		return dto.ReleaseOutput{}, domain.NewFailure(domain.ErrContractReverted, "session %s was refunded", req.SessionID)
	}

	backend, manifest, err := s.backend(ctx)
	if err != nil {
		return dto.ReleaseOutput{}, err
	}
	var tx string
	if manifest != nil {
		tx, err = s.host.Release(ctx, *manifest, req)
		if err != nil {
			return dto.ReleaseOutput{}, err
		}
	} else {
		tx = "local-" + s.ids.New()
	}

	delta := req.Cumulative.Sub(entry.Released)
	entry.Payee = req.Payee
	entry.Token = domain.TokenLabel(req.Symbol, req.Network)
	entry.Released = req.Cumulative
	entry.TxReference = tx
	entry.Releases++
	entry.Backend = backend
	entry.UpdatedAt = s.clock.Now()
	if err := s.ledger.Put(ctx, entry); err != nil {
		return dto.ReleaseOutput{}, fmt.Errorf("record release %s: %w", tx, err)
	}
	s.logger.Info("settlement released",
		"session_id", req.SessionID,
		"payee", req.Payee,
		"token", entry.Token,
		"cumulative", req.Cumulative.String(),
		"delta", delta.String(),
		"backend", backend,
		"tx", tx,
	)
	return dto.ReleaseOutput{
		SessionID:   req.SessionID,
		TxReference: tx,
		Cumulative:  req.Cumulative.String(),
		Delta:       delta.String(),
		Backend:     backend,
	}, nil
}

func (s *SettlementService) Refund(ctx context.Context, input dto.RefundInput) (dto.RefundOutput, error) {
	req := domain.RefundRequest{
		SessionID: strings.TrimSpace(input.SessionID),
		Payer:     strings.TrimSpace(input.Payer),
		Symbol:    input.TokenSymbol,
		Network:   input.Network,
		Reason:    input.Reason,
	}
	if err := req.Validate(); err != nil {
		return dto.RefundOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.entry(ctx, req.SessionID)
	if err != nil {
		return dto.RefundOutput{}, err
	}
	if entry.Refunded {
		return dto.RefundOutput{SessionID: req.SessionID, TxReference: entry.RefundTx, Replayed: true, Backend: entry.Backend}, nil
	}

	backend, manifest, err := s.backend(ctx)
	if err != nil {
		return dto.RefundOutput{}, err
	}
	var tx string
	if manifest != nil {
		tx, err = s.host.Refund(ctx, *manifest, req)
		if err != nil {
			return dto.RefundOutput{}, err
		}
	} else {
		tx = "local-" + s.ids.New()
	}

	entry.Payer = req.Payer
	if entry.Token == "" {
		entry.Token = domain.TokenLabel(req.Symbol, req.Network)
	}
	entry.Refunded = true
	entry.RefundReason = req.Reason
	entry.RefundTx = tx
	entry.Backend = backend
	entry.UpdatedAt = s.clock.Now()
	if err := s.ledger.Put(ctx, entry); err != nil {
		return dto.RefundOutput{}, fmt.Errorf("record refund %s: %w", tx, err)
	}
	s.logger.Info("settlement refund requested",
		"session_id", req.SessionID,
		"payer", req.Payer,
		"reason", req.Reason,
		"backend", backend,
		"tx", tx,
	)
	return dto.RefundOutput{SessionID: req.SessionID, TxReference: tx, Backend: backend}, nil
}

func (s *SettlementService) Doctor(ctx context.Context) (dto.DoctorResult, error) {
	manifest, ok, err := s.store.Load(ctx)
	if err != nil {
		return dto.DoctorResult{}, err
	}
	if !ok {
		return dto.DoctorResult{Backend: BackendLocal, LifecycleOK: true}, nil
	}
	result := dto.DoctorResult{
		Backend:    pluginBackend(manifest),
		Name:       manifest.Name,
		Version:    manifest.Version,
		Configured: true,
		Enabled:    manifest.Enabled,
	}
	if err := manifest.Validate(); err != nil {
		result.Error = err.Error()
		return result, nil
	}
	binaryOK := fileExists(manifest.Binary)
	result.BinaryReachable = binaryOK
	if !binaryOK {
		result.Error = fmt.Sprintf("binary does not exist: %s", manifest.Binary)
		return result, nil
	}
	result.ChecksumValid = checksumMatches(manifest.Binary, manifest.SHA256) == nil
	if !result.ChecksumValid {
		result.Error = "checksum mismatch"
		return result, nil
	}
	if manifest.Enabled && s.host != nil {
		if err := s.host.CheckLifecycle(ctx, manifest); err != nil {
			result.Error = err.Error()
		} else {
			result.LifecycleOK = true
		}
	}
	return result, nil
}

func (s *SettlementService) Ledger(ctx context.Context) ([]dto.LedgerEntryOutput, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LedgerEntryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryOutput{
			SessionID:    e.SessionID,
			Payee:        e.Payee,
			Payer:        e.Payer,
			Token:        e.Token,
			Released:     e.Released.String(),
			TxReference:  e.TxReference,
			Releases:     e.Releases,
			Refunded:     e.Refunded,
			RefundReason: e.RefundReason,
			RefundTx:     e.RefundTx,
			Backend:      e.Backend,
			UpdatedAt:    e.UpdatedAt,
		})
	}
	return out, nil
}

func (s *SettlementService) entry(ctx context.Context, sessionID string) (domain.LedgerEntry, error) {
	entry, err := s.ledger.Get(ctx, sessionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.LedgerEntry{SessionID: sessionID, Released: decimal.Zero}, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("read settlement ledger: %w", err)
	}
	return entry, nil
}

// backend returns the plugin manifest to call, or nil for the local ledger.
func (s *SettlementService) backend(ctx context.Context) (string, *domain.Manifest, error) {
	manifest, ok, err := s.store.Load(ctx)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return BackendLocal, nil, nil
	}
	if err := manifest.Validate(); err != nil {
		return "", nil, err
	}
	if !manifest.Enabled {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, manifest.Name)
	}
	if s.host == nil {
		return "", nil, fmt.Errorf("settlement plugin host is not configured")
	}
	if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
		return "", nil, err
	}
	return pluginBackend(manifest), &manifest, nil
}

func pluginBackend(manifest domain.Manifest) string {
	return "plugin:" + manifest.Name
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settlement plugin binary: %w", err)
	}
	hash := sha256.Sum256(payload)
	actual := hex.EncodeToString(hash[:])
	if actual != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
