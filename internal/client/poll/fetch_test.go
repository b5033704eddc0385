package poll

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/schulmanager/internal/models"
	"github.com/iudanet/schulmanager/pkg/api"
)

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []int
		wantErr bool
	}{
		{
			name: "bare array",
			data: `[1, 2, 3]`,
			want: []int{1, 2, 3},
		},
		{
			name: "wrapped in module key",
			data: `{"lessons": [4, 5]}`,
			want: []int{4, 5},
		},
		{
			name: "null payload",
			data: `null`,
			want: nil,
		},
		{
			name:    "object without the key",
			data:    `{"other": [1]}`,
			wantErr: true,
		},
		{
			name:    "scalar payload",
			data:    `42`,
			wantErr: true,
		},
		{
			name:    "wrong element type under key",
			data:    `{"lessons": ["x"]}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			err := decodeList(json.RawMessage(tt.data), "lessons", &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordFromLesson(t *testing.T) {
	lesson := api.Lesson{
		ID:      12,
		Date:    "2026-03-02T00:00:00.000Z",
		Type:    "substitution",
		Comment: "Vertretung",
		ClassHour: &api.ClassHour{
			ID: 1, Number: 3, From: "09:45:00", Until: "10:30:00",
		},
		ActualLesson: &api.ActualLesson{
			LessonID: 12,
			Subject:  &api.NameRef{Name: "Physik", Abbreviation: "PH"},
			Room:     &api.NameRef{Name: "R204"},
			Teachers: []api.Teacher{{Firstname: "Eva", Lastname: "Schmidt", Abbreviation: "SCH"}},
		},
	}

	record := recordFromLesson(lesson)
	assert.Equal(t, "12", record.ID)
	assert.Equal(t, "2026-03-02", record.Date) // timestamp reduced to its date
	assert.Equal(t, 3, record.ClassHourNumber)
	assert.Equal(t, models.LessonChanged, record.Kind)
	assert.Equal(t, "Physik", record.Subject)
	assert.Equal(t, "PH", record.SubjectAbbr)
	assert.Equal(t, "SCH", record.Teacher)
	assert.Equal(t, "R204", record.Room)
	assert.Equal(t, "Vertretung", record.Comment)
}
