package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/schulmanager/internal/models"
)

func sixPeriodTemplate() models.ClassHourTemplate {
	return models.NewWeekdayTemplate([]models.ClassHour{
		{Number: 1, From: "07:50:00", Until: "08:35:00"},
		{Number: 2, From: "08:40:00", Until: "09:25:00"},
		{Number: 3, From: "09:45:00", Until: "10:30:00"},
		{Number: 4, From: "10:35:00", Until: "11:20:00"},
		{Number: 5, From: "11:40:00", Until: "12:25:00"},
		{Number: 6, From: "12:30:00", Until: "13:15:00"},
	})
}

// monday is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func lesson(date string, hour int, kind models.LessonKind, subject string) models.LessonRecord {
	return models.LessonRecord{
		ID:              date + "-" + subject,
		Date:            date,
		ClassHourNumber: hour,
		Kind:            kind,
		Subject:         subject,
		Teacher:         "MUE",
		Room:            "R101",
	}
}

func TestSynthesize_SlotCountInvariant(t *testing.T) {
	// K periods per day over D school days always yields exactly K*D slots
	// with unique (date, class hour number) keys.
	friday := monday.AddDate(0, 0, 4)

	snap, err := Synthesize(100, monday, friday, nil, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Slots, 6*5)

	keys := make(map[models.SlotKey]struct{})
	for _, slot := range snap.Slots {
		_, dup := keys[slot.Key()]
		require.False(t, dup, "duplicate slot key %v", slot.Key())
		keys[slot.Key()] = struct{}{}
		assert.Equal(t, models.SlotFree, slot.Kind)
	}
}

func TestSynthesize_FirstPeriodFreeUsesTemplateTimes(t *testing.T) {
	// Periods 2-6 occupied on Monday; period 1 must come out free with the
	// template's exact times, never an offset computed from a constant.
	var lessons []models.LessonRecord
	for hour := 2; hour <= 6; hour++ {
		lessons = append(lessons, lesson("2026-03-02", hour, models.LessonRegular, "MATH"))
	}

	snap, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Slots, 6)

	first := snap.Slots[0]
	assert.Equal(t, 1, first.ClassHourNumber)
	assert.Equal(t, models.SlotFree, first.Kind)
	assert.Equal(t, "07:50:00", first.StartTime)
	assert.Equal(t, "08:35:00", first.EndTime)
	assert.Empty(t, first.Subject)
	assert.Empty(t, first.Teacher)
	assert.Empty(t, first.Room)

	for _, slot := range snap.Slots[1:] {
		assert.Equal(t, models.SlotRegular, slot.Kind)
		assert.Equal(t, "MATH", slot.Subject)
	}
}

func TestSynthesize_WeekendsProduceNoSlots(t *testing.T) {
	sunday := monday.AddDate(0, 0, 6)

	snap, err := Synthesize(100, monday, sunday, nil, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)
	// Monday through Friday only: Saturday and Sunday are not padded with
	// free slots.
	assert.Len(t, snap.Slots, 6*5)
	for _, slot := range snap.Slots {
		date, err := time.Parse(models.DateFormat, slot.Date)
		require.NoError(t, err)
		assert.NotEqual(t, time.Saturday, date.Weekday())
		assert.NotEqual(t, time.Sunday, date.Weekday())
	}
}

func TestSynthesize_CancelledWithReplacementEvent(t *testing.T) {
	lessons := []models.LessonRecord{
		lesson("2026-03-02", 3, models.LessonCancelled, "MATH"),
		lesson("2026-03-02", 3, models.LessonEvent, "Projekttag"),
	}

	snap, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)

	slot := snap.Slots[2]
	assert.Equal(t, models.SlotEvent, slot.Kind)
	assert.Equal(t, "Projekttag", slot.Subject)
	// the cancelled original is retained, never dropped silently
	require.NotNil(t, slot.PreviousLesson)
	assert.Equal(t, models.LessonCancelled, slot.PreviousLesson.Kind)
	assert.Equal(t, "MATH", slot.PreviousLesson.Subject)
}

func TestSynthesize_AllRecordsCancelled(t *testing.T) {
	lessons := []models.LessonRecord{
		lesson("2026-03-02", 2, models.LessonCancelled, "MATH"),
	}

	snap, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)

	slot := snap.Slots[1]
	assert.Equal(t, models.SlotCancelled, slot.Kind)
	assert.Equal(t, "MATH", slot.Subject)
	assert.Nil(t, slot.PreviousLesson)
}

func TestSynthesize_SubstitutionKind(t *testing.T) {
	lessons := []models.LessonRecord{
		lesson("2026-03-02", 1, models.LessonChanged, "ENG"),
	}

	snap, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SlotSubstituted, snap.Slots[0].Kind)
}

func TestSynthesize_UnknownClassHourIsDataError(t *testing.T) {
	lessons := []models.LessonRecord{
		lesson("2026-03-02", 9, models.LessonRegular, "MATH"), // template has 1-6
	}

	_, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Contains(t, dataErr.Reason, "class hour 9")
}

func TestSynthesize_UnparseableLessonDate(t *testing.T) {
	lessons := []models.LessonRecord{
		{ID: "x", Date: "02.03.2026", ClassHourNumber: 1, Kind: models.LessonRegular},
	}

	_, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	var dataErr *DataError
	assert.ErrorAs(t, err, &dataErr)
}

func TestSynthesize_LessonsOutsideWindowIgnored(t *testing.T) {
	lessons := []models.LessonRecord{
		lesson("2026-02-23", 1, models.LessonRegular, "MATH"), // week before
	}

	snap, err := Synthesize(100, monday, monday, lessons, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)
	for _, slot := range snap.Slots {
		assert.Equal(t, models.SlotFree, slot.Kind)
	}
}

func TestSynthesize_SlotsOrdered(t *testing.T) {
	// occupied out of order across two days; output must still be sorted
	lessons := []models.LessonRecord{
		lesson("2026-03-03", 4, models.LessonRegular, "BIO"),
		lesson("2026-03-02", 6, models.LessonRegular, "MATH"),
		lesson("2026-03-02", 1, models.LessonRegular, "ENG"),
	}
	tuesday := monday.AddDate(0, 0, 1)

	snap, err := Synthesize(100, monday, tuesday, lessons, sixPeriodTemplate(), time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Slots, 12)

	for i := 1; i < len(snap.Slots); i++ {
		prev, cur := snap.Slots[i-1], snap.Slots[i]
		if prev.Date == cur.Date {
			assert.Less(t, prev.ClassHourNumber, cur.ClassHourNumber)
		} else {
			assert.Less(t, prev.Date, cur.Date)
		}
	}
}

func TestSynthesize_WindowEndBeforeStart(t *testing.T) {
	_, err := Synthesize(100, monday, monday.AddDate(0, 0, -1), nil, sixPeriodTemplate(), time.Now())
	var dataErr *DataError
	assert.ErrorAs(t, err, &dataErr)
}
