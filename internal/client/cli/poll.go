package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/schulmanager/internal/client/poll"
	"github.com/iudanet/schulmanager/internal/client/router"
	"github.com/iudanet/schulmanager/internal/client/storage"
	"github.com/iudanet/schulmanager/internal/models"
)

// RunPoll runs one poll cycle for every student and prints the result.
func (c *Cli) RunPoll(ctx context.Context) error {
	svc, rt, err := c.pollService(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	reports, err := svc.PollAll(ctx)
	if err != nil {
		return err
	}

	for _, report := range reports {
		printReport(report)
	}
	return nil
}

// RunWatch polls on a fixed interval until the context is cancelled.
func (c *Cli) RunWatch(ctx context.Context) error {
	svc, rt, err := c.pollService(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	interval := c.opts.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	fmt.Printf("Watching every %s. Press Ctrl+C to stop.\n", interval)

	runOnce := func() {
		reports, err := svc.PollAll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("poll cycle failed", "error", err)
			return
		}
		for _, report := range reports {
			if len(report.Changes) > 0 {
				printReport(report)
			}
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopped.")
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

// pollService builds an authenticated router from the persisted account
// state and wraps it in a poll service.
func (c *Cli) pollService(ctx context.Context) (poll.Service, *router.Router, error) {
	state, err := c.store.GetAccount(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, nil, fmt.Errorf("not logged in. Run 'schulmanager login' first")
		}
		return nil, nil, fmt.Errorf("failed to load account state: %w", err)
	}

	creds, err := c.credentials(state.Identifier)
	if err != nil {
		return nil, nil, err
	}

	rt := c.newRouter(creds)
	if err := rt.Restore(ctx, state.Tenants); err != nil {
		rt.Close()
		return nil, nil, err
	}

	svc := poll.NewService(rt, c.store, slog.Default(), c.opts.WeeksAhead)
	return svc, rt, nil
}

func printReport(report *poll.Report) {
	subject := report.Subject
	fmt.Println()
	fmt.Printf("=== %s (%s to %s) ===\n", subject.DisplayName(),
		report.Snapshot.WindowStart, report.Snapshot.WindowEnd)
	fmt.Printf("%d slots, %d changes, %d homework entries, %d exams\n",
		len(report.Snapshot.Slots), len(report.Changes), len(report.Homework), len(report.Exams))

	for _, change := range report.Changes {
		printChange(change)
	}
}

func printChange(change models.ChangeEvent) {
	switch change.Kind {
	case models.ChangeAdded:
		fmt.Printf("  + %s\n", describeSlot(change.Current))
	case models.ChangeRemoved:
		fmt.Printf("  - %s\n", describeSlot(change.Previous))
	case models.ChangeModified:
		fmt.Printf("  * %s => %s\n", describeSlot(change.Previous), describeSlot(change.Current))
	}
}

func describeSlot(slot *models.Slot) string {
	if slot == nil {
		return "?"
	}
	desc := fmt.Sprintf("%s period %d", slot.Date, slot.ClassHourNumber)
	if slot.Kind == models.SlotFree {
		return desc + ": free"
	}
	desc += fmt.Sprintf(": %s %s", slot.Kind, slot.Subject)
	if slot.Teacher != "" {
		desc += " (" + slot.Teacher
		if slot.Room != "" {
			desc += ", " + slot.Room
		}
		desc += ")"
	} else if slot.Room != "" {
		desc += " (" + slot.Room + ")"
	}
	if slot.Comment != "" {
		desc += " [" + slot.Comment + "]"
	}
	return desc
}
