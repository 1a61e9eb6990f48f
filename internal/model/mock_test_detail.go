package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoices QuestionType = "MULTIPLE_CHOICES"
	QuestionTypeEssay           QuestionType = "ESSAY"
)

// MockTest is a test definition. The session never mutates it.
type MockTest struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	DurationSeconds int            `json:"durationSeconds"`
	TotalPoint      int            `json:"totalPoint"`
	RequiredTier    string         `json:"requiredTier,omitempty"`
	Questions       []MockQuestion `json:"questions"`
}

// MockQuestion is one question of a MockTest.
type MockQuestion struct {
	ID           int64        `json:"id"`
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"questionType"`
	Point        int          `json:"point"`
	Options      []MockOption `json:"options,omitempty"`
}

// MockOption is a selectable option of a choice question. Answer is only
// populated by the backend once the attempt is finalized.
type MockOption struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Answer bool   `json:"answer"`
}

// IsChoice reports whether q is answered by picking an option.
func (q *MockQuestion) IsChoice() bool {
	return q.QuestionType == QuestionTypeMultipleChoices
}

// Option returns the option with the given id.
func (q *MockQuestion) Option(id int64) (*MockOption, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// CorrectOption returns the option flagged as the answer, if any.
func (q *MockQuestion) CorrectOption() (*MockOption, bool) {
	for i := range q.Options {
		if q.Options[i].Answer {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// Question returns the question with the given id.
func (t *MockTest) Question(id int64) (*MockQuestion, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i], true
		}
	}
	return nil, false
}

// TotalPoints returns TotalPoint, or the sum of question points when unset.
// It is the grader's maximum; client-side percentages use TotalPoint and
// fall back to the attempt's MaxPoint.
func (t *MockTest) TotalPoints() int {
	if t.TotalPoint > 0 {
		return t.TotalPoint
	}
	sum := 0
	for _, q := range t.Questions {
		sum += q.Point
	}
	return sum
}
