package schedule

import "github.com/iudanet/schulmanager/internal/models"

// Diff computes the minimal list of semantically meaningful differences
// between two consecutive snapshots of the same subject and window. A nil
// previous snapshot (cold start) yields no events at all, so the first poll
// never produces a notification storm. Output order follows the current
// snapshot's slot order; removals (keys the window no longer covers) are
// appended in the previous snapshot's order.
func Diff(previous, current *models.ScheduleSnapshot) []models.ChangeEvent {
	if current == nil || previous == nil {
		return nil
	}

	prevByKey := make(map[models.SlotKey]*models.Slot, len(previous.Slots))
	for i := range previous.Slots {
		prevByKey[previous.Slots[i].Key()] = &previous.Slots[i]
	}

	var events []models.ChangeEvent
	seen := make(map[models.SlotKey]struct{}, len(current.Slots))

	for i := range current.Slots {
		cur := &current.Slots[i]
		key := cur.Key()
		seen[key] = struct{}{}

		prev, ok := prevByKey[key]
		if !ok {
			events = append(events, models.ChangeEvent{Kind: models.ChangeAdded, Current: cur})
			continue
		}
		if !observablyEqual(prev, cur) {
			events = append(events, models.ChangeEvent{Kind: models.ChangeModified, Previous: prev, Current: cur})
		}
	}

	for i := range previous.Slots {
		prev := &previous.Slots[i]
		if _, ok := seen[prev.Key()]; !ok {
			events = append(events, models.ChangeEvent{Kind: models.ChangeRemoved, Previous: prev})
		}
	}

	return events
}

// observablyEqual compares only the fields a user can observe. Two free
// slots are always equal regardless of internal metadata.
func observablyEqual(a, b *models.Slot) bool {
	if a.Kind == models.SlotFree && b.Kind == models.SlotFree {
		return true
	}
	return a.Kind == b.Kind &&
		a.Subject == b.Subject &&
		a.Teacher == b.Teacher &&
		a.Room == b.Room &&
		a.Comment == b.Comment
}
