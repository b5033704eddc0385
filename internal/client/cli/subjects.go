package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/schulmanager/internal/client/storage"
	"github.com/iudanet/schulmanager/internal/models"
)

// RunSubjects lists the students cached at login time. No network access.
func (c *Cli) RunSubjects(ctx context.Context) error {
	state, err := c.store.GetAccount(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return fmt.Errorf("not logged in. Run 'schulmanager login' first")
		}
		return fmt.Errorf("failed to load account state: %w", err)
	}

	fmt.Printf("Account: %s (discovered %s)\n", state.Identifier,
		state.DiscoveredAt.Format("2006-01-02 15:04"))
	printSubjects(state.Subjects)
	return nil
}

func printSubjects(subjects []models.Subject) {
	if len(subjects) == 0 {
		fmt.Println("No students associated with this account.")
		return
	}

	fmt.Println()
	fmt.Println("Students:")
	for _, subject := range subjects {
		line := fmt.Sprintf("  [%d] %s", subject.ID, subject.DisplayName())
		if subject.TenantLabel != "" {
			line += fmt.Sprintf(" - %s", subject.TenantLabel)
		} else if subject.TenantID != 0 {
			line += fmt.Sprintf(" - institution %d", subject.TenantID)
		}
		fmt.Println(line)
	}
}
