package out

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"mentorpay/internal/modules/settlement/domain"
	settlementout "mentorpay/internal/modules/settlement/port/out"
	apperrors "mentorpay/internal/platform/errors"
)

const LedgerBucket = "settlement_ledger"

type BoltLedger struct {
	db *bolt.DB
}

func NewBoltLedger(db *bolt.DB) (*BoltLedger, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(LedgerBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create ledger bucket: %w", err)
	}
	return &BoltLedger{db: db}, nil
}

var _ settlementout.Ledger = (*BoltLedger)(nil)

func (l *BoltLedger) Get(_ context.Context, sessionID string) (domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(LedgerBucket)).Get([]byte(sessionID))
		if raw == nil {
			return fmt.Errorf("%w: ledger entry %s", apperrors.ErrNotFound, sessionID)
		}
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	return entry, nil
}

func (l *BoltLedger) Put(_ context.Context, entry domain.LedgerEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(LedgerBucket)).Put([]byte(entry.SessionID), raw)
	})
}

func (l *BoltLedger) List(_ context.Context) ([]domain.LedgerEntry, error) {
	entries := []domain.LedgerEntry{}
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(LedgerBucket)).ForEach(func(_, raw []byte) error {
			var entry domain.LedgerEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("decode ledger entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
