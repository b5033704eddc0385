package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/schulmanager/internal/client/storage"
)

// RunLogin authenticates the account, discovers its institutions and
// persists the result so later commands can skip discovery.
func (c *Cli) RunLogin(ctx context.Context) error {
	creds, err := c.credentials("")
	if err != nil {
		return err
	}

	fmt.Println("Authenticating...")

	rt := c.newRouter(creds)
	defer rt.Close()

	result, err := rt.Discover(ctx)
	if err != nil {
		return err
	}

	// keep the node id stable across logins
	nodeID := uuid.NewString()
	if existing, err := c.store.GetAccount(ctx); err == nil && existing.NodeID != "" {
		nodeID = existing.NodeID
	}

	state := &storage.AccountState{
		NodeID:       nodeID,
		Identifier:   creds.Identifier,
		Tenants:      rt.Tenants(),
		Subjects:     rt.AllSubjects(),
		DiscoveredAt: time.Now().UTC(),
	}
	if err := c.store.SaveAccount(ctx, state); err != nil {
		return fmt.Errorf("failed to save account state: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Login successful!")
	if result.Multi {
		fmt.Printf("Account spans %d institutions:\n", len(result.Tenants))
		for _, tenant := range result.Tenants {
			fmt.Printf("  [%d] %s\n", tenant.ID, tenant.Label)
		}
	}
	printSubjects(state.Subjects)
	return nil
}

// RunLogout removes the stored account state and all snapshots.
func (c *Cli) RunLogout(ctx context.Context) error {
	if err := c.store.DeleteAccount(ctx); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			fmt.Println("No stored session.")
			return nil
		}
		return fmt.Errorf("failed to delete account state: %w", err)
	}
	if err := c.store.DeleteSnapshots(ctx); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	fmt.Println("✓ Logged out.")
	return nil
}
