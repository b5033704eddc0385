package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"

	"github.com/iudanet/schulmanager/internal/client/storage"
	"github.com/iudanet/schulmanager/internal/models"
)

var _ storage.SnapshotStorage = (*Storage)(nil)

func snapshotKey(subjectID int) []byte {
	return []byte(strconv.Itoa(subjectID))
}

// SaveSnapshot stores the snapshot under its subject id, replacing any
// previous one.
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot *models.ScheduleSnapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		if err := bucket.Put(snapshotKey(snapshot.SubjectID), data); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		return nil
	})
}

// GetSnapshot retrieves the last stored snapshot for a subject.
func (s *Storage) GetSnapshot(ctx context.Context, subjectID int) (*models.ScheduleSnapshot, error) {
	var snapshot *models.ScheduleSnapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		data := bucket.Get(snapshotKey(subjectID))
		if data == nil {
			return storage.ErrSnapshotNotFound
		}

		snapshot = &models.ScheduleSnapshot{}
		if err := json.Unmarshal(data, snapshot); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// DeleteSnapshots removes every stored snapshot.
func (s *Storage) DeleteSnapshots(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketSnapshots); err != nil {
			return fmt.Errorf("failed to delete snapshots bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketSnapshots); err != nil {
			return fmt.Errorf("failed to recreate snapshots bucket: %w", err)
		}
		return nil
	})
}
