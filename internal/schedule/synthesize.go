// Package schedule reconstructs complete timetables from the portal's
// sparse lesson lists and detects changes between successive snapshots.
// Everything here is pure computation over in-memory data; no I/O.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/iudanet/schulmanager/internal/models"
)

// DataError indicates input that violates the expected shape, e.g. a lesson
// record referencing a class-hour number the template does not define.
// Surfaced, never silently dropped.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "malformed schedule data: " + e.Reason
}

// Synthesize produces a complete, gap-free snapshot for one subject and
// window. For every calendar date in the window whose weekday the template
// defines as a school day, every template period yields exactly one slot;
// periods with no occupying lesson become "free" slots whose times are taken
// verbatim from the template. Dates on weekdays the template does not define
// produce no slots at all.
func Synthesize(
	subjectID int,
	windowStart, windowEnd time.Time,
	lessons []models.LessonRecord,
	template models.ClassHourTemplate,
	takenAt time.Time,
) (*models.ScheduleSnapshot, error) {
	start := truncateToDate(windowStart)
	end := truncateToDate(windowEnd)
	if end.Before(start) {
		return nil, &DataError{Reason: fmt.Sprintf("window end %s before start %s",
			end.Format(models.DateFormat), start.Format(models.DateFormat))}
	}

	grouped, err := groupLessons(lessons, start, end)
	if err != nil {
		return nil, err
	}

	var slots []models.Slot
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		hours := template.HoursFor(date.Weekday())
		if len(hours) == 0 {
			continue // not a school day: no slots, free or otherwise
		}

		ordered := append([]models.ClassHour(nil), hours...)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

		dateStr := date.Format(models.DateFormat)
		for _, hour := range ordered {
			key := models.SlotKey{Date: dateStr, ClassHourNumber: hour.Number}
			slots = append(slots, buildSlot(key, hour, grouped[key]))
			delete(grouped, key)
		}
	}

	// Anything left over referenced a period or weekday the template does
	// not define for its date.
	if len(grouped) > 0 {
		for key := range grouped {
			return nil, &DataError{Reason: fmt.Sprintf(
				"lesson on %s references class hour %d not defined by the template",
				key.Date, key.ClassHourNumber)}
		}
	}

	return &models.ScheduleSnapshot{
		SubjectID:   subjectID,
		WindowStart: start.Format(models.DateFormat),
		WindowEnd:   end.Format(models.DateFormat),
		Slots:       slots, // already ordered by (date, class hour number)
		TakenAt:     takenAt,
	}, nil
}

// groupLessons indexes the sparse lesson list by slot key. Lessons dated
// outside the window are ignored; the window is the contract.
func groupLessons(lessons []models.LessonRecord, start, end time.Time) (map[models.SlotKey][]models.LessonRecord, error) {
	grouped := make(map[models.SlotKey][]models.LessonRecord)
	for _, lesson := range lessons {
		date, err := time.Parse(models.DateFormat, lesson.Date)
		if err != nil {
			return nil, &DataError{Reason: fmt.Sprintf("lesson %s has unparseable date %q", lesson.ID, lesson.Date)}
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		key := models.SlotKey{Date: lesson.Date, ClassHourNumber: lesson.ClassHourNumber}
		grouped[key] = append(grouped[key], lesson)
	}
	return grouped, nil
}

// buildSlot materializes one slot from the records occupying its key. With
// no records the slot is free. When a cancelled record coexists with a
// replacement (event, substitution or regular lesson), the replacement wins
// and the cancelled original is retained as PreviousLesson.
func buildSlot(key models.SlotKey, hour models.ClassHour, records []models.LessonRecord) models.Slot {
	slot := models.Slot{
		Date:            key.Date,
		ClassHourNumber: key.ClassHourNumber,
		StartTime:       hour.From,
		EndTime:         hour.Until,
		Kind:            models.SlotFree,
	}
	if len(records) == 0 {
		return slot
	}

	var primary *models.LessonRecord
	var cancelled *models.LessonRecord
	for i := range records {
		record := &records[i]
		if record.Kind == models.LessonCancelled {
			if cancelled == nil {
				cancelled = record
			}
			continue
		}
		if primary == nil {
			primary = record
		}
	}
	if primary == nil {
		primary = cancelled
		cancelled = nil
	}

	slot.Kind = slotKindFor(primary.Kind)
	slot.Subject = primary.Subject
	slot.SubjectAbbr = primary.SubjectAbbr
	slot.Teacher = primary.Teacher
	slot.Room = primary.Room
	slot.Comment = primary.Comment
	if cancelled != nil {
		retained := *cancelled
		slot.PreviousLesson = &retained
	}
	return slot
}

func slotKindFor(kind models.LessonKind) models.SlotKind {
	switch kind {
	case models.LessonCancelled:
		return models.SlotCancelled
	case models.LessonChanged:
		return models.SlotSubstituted
	case models.LessonEvent:
		return models.SlotEvent
	default:
		return models.SlotRegular
	}
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
