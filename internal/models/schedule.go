package models

import "time"

// DateFormat is the calendar-date layout used throughout the schedule
// domain. All Date fields hold values in this form.
const DateFormat = "2006-01-02"

// LessonKind classifies a raw lesson record.
type LessonKind string

const (
	LessonRegular   LessonKind = "regular"
	LessonChanged   LessonKind = "changed" // substitution or other modification
	LessonCancelled LessonKind = "cancelled"
	LessonEvent     LessonKind = "event"
)

// LessonRecord is one normalized entry of the sparse lesson list: only
// occupied periods are represented.
type LessonRecord struct {
	ID              string     `json:"id"`
	Date            string     `json:"date"` // DateFormat
	ClassHourNumber int        `json:"class_hour_number"`
	Kind            LessonKind `json:"kind"`
	Subject         string     `json:"subject"`
	SubjectAbbr     string     `json:"subject_abbr,omitempty"`
	Teacher         string     `json:"teacher,omitempty"`
	Room            string     `json:"room,omitempty"`
	Comment         string     `json:"comment,omitempty"`
}

// ClassHour is one period definition of a class-hour template. Times are
// wall-clock "HH:MM:SS" strings taken verbatim from the portal; they are
// never computed from a fixed lesson-duration constant because real schools
// have irregular period lengths and breaks.
type ClassHour struct {
	Number int    `json:"number"`
	From   string `json:"from"`
	Until  string `json:"until"`
}

// ClassHourTemplate defines which periods exist on which weekday for a
// tenant/class. Weekdays without an entry are not school days: no slots,
// free or otherwise, are produced for them. Relatively static; cacheable
// with a long TTL.
type ClassHourTemplate struct {
	Days map[time.Weekday][]ClassHour `json:"days"`
}

// NewWeekdayTemplate builds a template that applies the given periods to
// Monday through Friday, the portal's default school week.
func NewWeekdayTemplate(hours []ClassHour) ClassHourTemplate {
	days := make(map[time.Weekday][]ClassHour, 5)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		days[wd] = hours
	}
	return ClassHourTemplate{Days: days}
}

// HoursFor returns the period definitions for one weekday, or nil when the
// weekday is not a school day.
func (t ClassHourTemplate) HoursFor(day time.Weekday) []ClassHour {
	return t.Days[day]
}

// SlotKind classifies a synthesized schedule slot.
type SlotKind string

const (
	SlotRegular     SlotKind = "regular"
	SlotSubstituted SlotKind = "substituted"
	SlotCancelled   SlotKind = "cancelled"
	SlotEvent       SlotKind = "event"
	SlotFree        SlotKind = "free"
)

// Slot is one synthesized schedule entry. For every date in the requested
// window and every class-hour number the template defines for that weekday,
// exactly one Slot exists in the resulting snapshot.
type Slot struct {
	Date            string   `json:"date"` // DateFormat
	ClassHourNumber int      `json:"class_hour_number"`
	StartTime       string   `json:"start_time"` // from the template, verbatim
	EndTime         string   `json:"end_time"`
	Kind            SlotKind `json:"kind"`
	Subject         string   `json:"subject,omitempty"`
	SubjectAbbr     string   `json:"subject_abbr,omitempty"`
	Teacher         string   `json:"teacher,omitempty"`
	Room            string   `json:"room,omitempty"`
	Comment         string   `json:"comment,omitempty"`

	// PreviousLesson retains a cancelled record that was displaced by a
	// replacement (event or substitution) on the same slot key. Never
	// dropped silently.
	PreviousLesson *LessonRecord `json:"previous_lesson,omitempty"`
}

// Key returns the slot's identity across snapshots.
func (s Slot) Key() SlotKey {
	return SlotKey{Date: s.Date, ClassHourNumber: s.ClassHourNumber}
}

// SlotKey identifies a slot by date and period number.
type SlotKey struct {
	Date            string
	ClassHourNumber int
}

// ScheduleSnapshot is one complete, gap-free materialization of a subject's
// schedule for a time window. Immutable once built; every poll produces a
// brand-new snapshot.
type ScheduleSnapshot struct {
	SubjectID   int       `json:"subject_id"`
	WindowStart string    `json:"window_start"` // DateFormat
	WindowEnd   string    `json:"window_end"`
	Slots       []Slot    `json:"slots"` // sorted by (date, class hour number)
	TakenAt     time.Time `json:"taken_at"`
}

// ChangeKind classifies a detected schedule difference.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// ChangeEvent is one semantically meaningful difference between two
// consecutive snapshots of the same subject and window.
type ChangeEvent struct {
	Kind     ChangeKind `json:"kind"`
	Previous *Slot      `json:"previous,omitempty"`
	Current  *Slot      `json:"current,omitempty"`
}
