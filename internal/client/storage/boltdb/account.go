package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/schulmanager/internal/client/storage"
)

var accountKey = []byte("current")

var _ storage.StateStorage = (*Storage)(nil)

// SaveAccount stores the account state, replacing any previous one.
func (s *Storage) SaveAccount(ctx context.Context, state *storage.AccountState) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccount)
		if bucket == nil {
			return fmt.Errorf("account bucket not found")
		}

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal account state: %w", err)
		}

		if err := bucket.Put(accountKey, data); err != nil {
			return fmt.Errorf("failed to save account state: %w", err)
		}

		return nil
	})
}

// GetAccount retrieves the stored account state.
func (s *Storage) GetAccount(ctx context.Context) (*storage.AccountState, error) {
	var state *storage.AccountState

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccount)
		if bucket == nil {
			return fmt.Errorf("account bucket not found")
		}

		data := bucket.Get(accountKey)
		if data == nil {
			return storage.ErrAccountNotFound
		}

		state = &storage.AccountState{}
		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal account state: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}

// DeleteAccount removes the stored account state (logout).
func (s *Storage) DeleteAccount(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccount)
		if bucket == nil {
			return fmt.Errorf("account bucket not found")
		}

		if bucket.Get(accountKey) == nil {
			return storage.ErrAccountNotFound
		}

		if err := bucket.Delete(accountKey); err != nil {
			return fmt.Errorf("failed to delete account state: %w", err)
		}

		return nil
	})
}
