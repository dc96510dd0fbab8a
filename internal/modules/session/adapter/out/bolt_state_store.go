package out

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
	apperrors "mentorpay/internal/platform/errors"
)

// SessionsBucket holds live engine state keyed by session id.
const SessionsBucket = "sessions"

// BoltStateStore keeps live engine state, one JSON document per session.
type BoltStateStore struct {
	db *bolt.DB
}

func NewBoltStateStore(db *bolt.DB) (*BoltStateStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(SessionsBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &BoltStateStore{db: db}, nil
}

var _ sessionout.StateStore = (*BoltStateStore)(nil)

func (s *BoltStateStore) Save(_ context.Context, state domain.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SessionsBucket)).Put([]byte(state.Session.ID), payload)
	})
	if err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

func (s *BoltStateStore) Load(_ context.Context, sessionID string) (domain.State, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket([]byte(SessionsBucket)).Get([]byte(sessionID)); raw != nil {
			payload = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return domain.State{}, fmt.Errorf("load session state: %w", err)
	}
	if payload == nil {
		return domain.State{}, apperrors.ErrSessionNotFound
	}
	state := domain.State{}
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.State{}, fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}

func (s *BoltStateStore) Delete(_ context.Context, sessionID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SessionsBucket)).Delete([]byte(sessionID))
	})
	if err != nil {
		return fmt.Errorf("delete session state: %w", err)
	}
	return nil
}

func (s *BoltStateStore) List(_ context.Context) ([]domain.State, error) {
	states := []domain.State{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SessionsBucket)).ForEach(func(k, v []byte) error {
			state := domain.State{}
			if err := json.Unmarshal(v, &state); err != nil {
				return fmt.Errorf("decode session state %s: %w", string(k), err)
			}
			states = append(states, state)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}
