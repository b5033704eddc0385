package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/iudanet/schulmanager/internal/client/session"
	"github.com/iudanet/schulmanager/internal/models"
	"github.com/iudanet/schulmanager/pkg/api"
)

// unwrapResult extracts the data payload of a single-request batch, checking
// the per-result status.
func unwrapResult(results []api.CallResult) (json.RawMessage, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("empty results envelope")
	}
	result := results[0]
	if result.Status != 200 {
		return nil, fmt.Errorf("endpoint returned status %d", result.Status)
	}
	return result.Data, nil
}

// decodeList decodes a payload that is either a bare array or an object
// wrapping the array under a module-specific key. Some API versions use
// e.g. {"lessons": [...]} where others return the list directly.
func decodeList(data json.RawMessage, key string, v interface{}) error {
	if err := json.Unmarshal(data, v); err == nil {
		return nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("payload is neither a list nor an object: %w", err)
	}
	inner, ok := wrapper[key]
	if !ok {
		return fmt.Errorf("payload carries no list and no %q key", key)
	}
	if err := json.Unmarshal(inner, v); err != nil {
		return fmt.Errorf("failed to decode %q list: %w", key, err)
	}
	return nil
}

func studentForSubject(subject models.Subject) api.Student {
	return api.Student{
		ID:        subject.ID,
		Firstname: subject.Firstname,
		Lastname:  subject.Lastname,
		ClassID:   subject.ClassID,
	}
}

// fetchLessons retrieves the sparse lesson list for one subject and window.
// It returns the normalized records alongside the wire lessons, which the
// caller may still need for the template fallback.
func fetchLessons(ctx context.Context, mgr *session.Manager, subject models.Subject, start, end string) ([]models.LessonRecord, []api.Lesson, error) {
	params := api.ScheduleParams{
		Student: studentForSubject(subject),
		Start:   start,
		End:     end,
	}

	results, err := mgr.Call(ctx, []api.ModuleRequest{
		api.NewModuleRequest("schedules", "get-actual-lessons", params),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch lessons: %w", err)
	}

	data, err := unwrapResult(results)
	if err != nil {
		return nil, nil, fmt.Errorf("lessons request rejected: %w", err)
	}

	var lessons []api.Lesson
	if err := decodeList(data, "lessons", &lessons); err != nil {
		return nil, nil, fmt.Errorf("failed to decode lessons: %w", err)
	}

	records := make([]models.LessonRecord, 0, len(lessons))
	for _, lesson := range lessons {
		// AGs and special events carry no class-hour reference; they
		// occupy no period slot and stay out of the grid
		if lesson.ClassHour == nil {
			continue
		}
		records = append(records, recordFromLesson(lesson))
	}
	return records, lessons, nil
}

// recordFromLesson maps one wire lesson onto the normalized record the
// synthesizer consumes.
func recordFromLesson(lesson api.Lesson) models.LessonRecord {
	record := models.LessonRecord{
		ID:      strconv.Itoa(lesson.ID),
		Date:    normalizeDate(lesson.Date),
		Kind:    lessonKindFor(lesson.Type),
		Comment: lesson.Comment,
	}
	if lesson.ClassHour != nil {
		record.ClassHourNumber = int(lesson.ClassHour.Number)
	}
	if actual := lesson.ActualLesson; actual != nil {
		if actual.Subject != nil {
			record.Subject = actual.Subject.Name
			if record.Subject == "" {
				record.Subject = actual.Subject.Abbreviation
			}
			record.SubjectAbbr = actual.Subject.Abbreviation
		}
		if actual.Room != nil {
			record.Room = actual.Room.Display()
		}
		if len(actual.Teachers) > 0 {
			teacher := actual.Teachers[0]
			record.Teacher = teacher.Abbreviation
			if record.Teacher == "" {
				record.Teacher = teacher.Lastname
			}
		}
	}
	// events often carry their description only in the comment
	if record.Subject == "" && record.Kind == models.LessonEvent {
		record.Subject = lesson.Comment
	}
	return record
}

func lessonKindFor(wireType string) models.LessonKind {
	switch wireType {
	case "cancelledLesson":
		return models.LessonCancelled
	case "changedLesson", "substitution":
		return models.LessonChanged
	case "event":
		return models.LessonEvent
	default:
		return models.LessonRegular
	}
}

// normalizeDate reduces a possibly timestamp-formed date to its calendar
// date part.
func normalizeDate(date string) string {
	if len(date) > len(models.DateFormat) {
		return date[:len(models.DateFormat)]
	}
	return date
}

// fetchTemplate retrieves the tenant's class-hour definitions and shapes
// them into a weekday template.
func fetchTemplate(ctx context.Context, mgr *session.Manager) (models.ClassHourTemplate, error) {
	results, err := mgr.Call(ctx, []api.ModuleRequest{
		api.NewModuleRequest("schedules", "get-class-hours", nil),
	})
	if err != nil {
		return models.ClassHourTemplate{}, fmt.Errorf("failed to fetch class hours: %w", err)
	}

	data, err := unwrapResult(results)
	if err != nil {
		return models.ClassHourTemplate{}, fmt.Errorf("class hours request rejected: %w", err)
	}

	var hours []api.ClassHour
	if err := decodeList(data, "classHours", &hours); err != nil {
		return models.ClassHourTemplate{}, fmt.Errorf("failed to decode class hours: %w", err)
	}

	return templateFromHours(hours), nil
}

// templateFromHours deduplicates the wire class hours by period number and
// applies them Monday through Friday.
func templateFromHours(hours []api.ClassHour) models.ClassHourTemplate {
	byNumber := make(map[int]models.ClassHour, len(hours))
	for _, hour := range hours {
		number := int(hour.Number)
		if _, ok := byNumber[number]; ok {
			continue
		}
		byNumber[number] = models.ClassHour{Number: number, From: hour.From, Until: hour.Until}
	}

	ordered := make([]models.ClassHour, 0, len(byNumber))
	for _, hour := range byNumber {
		ordered = append(ordered, hour)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	return models.NewWeekdayTemplate(ordered)
}

// templateFromLessons derives a template from the class-hour references the
// lessons themselves carry. A fallback for tenants whose class-hours
// endpoint returns nothing.
func templateFromLessons(lessons []api.Lesson) models.ClassHourTemplate {
	var hours []api.ClassHour
	for _, lesson := range lessons {
		if lesson.ClassHour != nil {
			hours = append(hours, *lesson.ClassHour)
		}
	}
	return templateFromHours(hours)
}

// fetchHomework retrieves the subject's homework list.
func fetchHomework(ctx context.Context, mgr *session.Manager, subject models.Subject) ([]api.Homework, error) {
	params := map[string]interface{}{"student": studentForSubject(subject)}

	results, err := mgr.Call(ctx, []api.ModuleRequest{
		api.NewModuleRequest("classbook", "get-homework", params),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch homework: %w", err)
	}

	data, err := unwrapResult(results)
	if err != nil {
		return nil, fmt.Errorf("homework request rejected: %w", err)
	}

	var homework []api.Homework
	if err := decodeList(data, "homeworks", &homework); err != nil {
		return nil, fmt.Errorf("failed to decode homework: %w", err)
	}
	return homework, nil
}

// fetchExams retrieves the subject's exams over the given window.
func fetchExams(ctx context.Context, mgr *session.Manager, subject models.Subject, start, end string) ([]api.Exam, error) {
	params := map[string]interface{}{
		"student": studentForSubject(subject),
		"start":   start,
		"end":     end,
	}

	results, err := mgr.Call(ctx, []api.ModuleRequest{
		api.NewModuleRequest("exams", "get-exams", params),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exams: %w", err)
	}

	data, err := unwrapResult(results)
	if err != nil {
		return nil, fmt.Errorf("exams request rejected: %w", err)
	}

	var exams []api.Exam
	if err := decodeList(data, "exams", &exams); err != nil {
		return nil, fmt.Errorf("failed to decode exams: %w", err)
	}
	return exams, nil
}
