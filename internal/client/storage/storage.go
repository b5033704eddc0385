// Package storage defines the client-side persistence contracts. The
// interfaces work with plain Go values; serialization and the backing store
// are implementation details of the concrete driver.
package storage

import (
	"context"
	"time"

	"github.com/iudanet/schulmanager/internal/models"
)

// AccountState is the durable per-account record. Persisting the discovered
// tenant set lets a restarted client skip the unscoped discovery round-trip
// and authenticate each tenant directly.
type AccountState struct {
	// NodeID is a stable identifier for this client installation,
	// generated once on first login.
	NodeID string `json:"node_id"`

	// Identifier is the login email or username the state belongs to.
	Identifier string `json:"identifier"`

	// Tenants holds every institution the account resolves to. A single
	// entry means single-tenant routing.
	Tenants []models.TenantCandidate `json:"tenants"`

	// Subjects caches the students discovered at login for listing
	// without a network round-trip.
	Subjects []models.Subject `json:"subjects"`

	DiscoveredAt time.Time `json:"discovered_at"`
}

// StateStorage stores the account discovery state.
type StateStorage interface {
	// SaveAccount stores the account state, replacing any previous one.
	SaveAccount(ctx context.Context, state *AccountState) error

	// GetAccount retrieves the stored account state.
	// Returns ErrAccountNotFound if no account has been saved.
	GetAccount(ctx context.Context) (*AccountState, error)

	// DeleteAccount removes the stored account state (logout).
	DeleteAccount(ctx context.Context) error
}

// SnapshotStorage stores the last synthesized schedule snapshot per subject,
// keyed by subject id. The stored snapshot is the diff baseline after a
// restart.
type SnapshotStorage interface {
	// SaveSnapshot stores the snapshot for its subject, replacing any
	// previous one.
	SaveSnapshot(ctx context.Context, snapshot *models.ScheduleSnapshot) error

	// GetSnapshot retrieves the last stored snapshot for a subject.
	// Returns ErrSnapshotNotFound if none exists.
	GetSnapshot(ctx context.Context, subjectID int) (*models.ScheduleSnapshot, error)

	// DeleteSnapshots removes all stored snapshots.
	DeleteSnapshots(ctx context.Context) error
}
