package api

// ClassHour is one period definition from schedules/get-class-hours.
// From and Until are wall-clock times in "HH:MM:SS" form.
type ClassHour struct {
	ID     int     `json:"id"`
	Number FlexInt `json:"number"`
	From   string  `json:"from"`
	Until  string  `json:"until"`
}

// Teacher is one teacher entry attached to a lesson.
type Teacher struct {
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Abbreviation string `json:"abbreviation"`
}

// ActualLesson carries the subject/teacher/room details of a scheduled
// lesson as the portal currently plans it.
type ActualLesson struct {
	LessonID int       `json:"lessonId"`
	Subject  *NameRef  `json:"subject"`
	Room     *NameRef  `json:"room"`
	Teachers []Teacher `json:"teachers"`
}

// Lesson is one raw record from schedules/get-actual-lessons. The list is
// sparse: only occupied periods are present. Known Type values are
// "regularLesson", "changedLesson", "substitution", "cancelledLesson" and
// "event".
type Lesson struct {
	ID           int           `json:"id"`
	Date         string        `json:"date"`
	Type         string        `json:"type"`
	Comment      string        `json:"comment"`
	ClassHour    *ClassHour    `json:"classHour"`
	ActualLesson *ActualLesson `json:"actualLesson"`
}

// ScheduleParams is the parameter block of schedules/get-actual-lessons.
// The endpoint requires the full student object, not just an id.
type ScheduleParams struct {
	Student Student `json:"student"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
}

// Homework is one assignment from classbook/get-homework.
type Homework struct {
	ID        int    `json:"id"`
	CreatedAt string `json:"createdAt"`
	Date      string `json:"date"`
	DueDate   string `json:"dueDate"`
	Subject   string `json:"subject"`
	Homework  string `json:"homework"`
	Completed bool   `json:"completed"`
}

// Exam is one entry from exams/get-exams.
type Exam struct {
	ID      int      `json:"id"`
	Date    string   `json:"date"`
	Subject *NameRef `json:"subject"`
	Comment string   `json:"comment"`
}
