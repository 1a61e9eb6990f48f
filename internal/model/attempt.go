package model

import "time"

// AttemptStatus enumerates attempt states. The only transition is
// IN_PROGRESS to COMPLETED.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one user's run through a MockTest.
type Attempt struct {
	ID           int64         `json:"id"`
	MockTestID   int64         `json:"mockTestId"`
	Status       AttemptStatus `json:"status"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	AttemptPoint int           `json:"attemptPoint"`
	MaxPoint     int           `json:"maxPoint"`
	MockAnswers  []Answer      `json:"mockAnswers"`
}

// Completed reports whether the attempt has been finalized.
func (a *Attempt) Completed() bool {
	return a.Status == AttemptStatusCompleted
}

// Answer is the recorded answer of one question.
type Answer struct {
	MockQuestionID int64   `json:"mockQuestionId"`
	MockOptionID   *int64  `json:"mockOptionId,omitempty"`
	AnswerText     *string `json:"answerText,omitempty"`
}

// SubmitAnswerRequest is the body of the submit-answer call.
type SubmitAnswerRequest struct {
	AccountID      int64   `json:"accountId" binding:"required,gt=0"`
	MockQuestionID int64   `json:"mockQuestionId" binding:"required,gt=0"`
	MockAttemptID  int64   `json:"mockAttemptId" binding:"required,gt=0"`
	MockOptionID   *int64  `json:"mockOptionId,omitempty" binding:"omitempty,gt=0"`
	AnswerText     *string `json:"answerText,omitempty" binding:"omitempty,max=20000"`
}

// SubmitAnswerResult is returned by the submit-answer call. FinalizedAttempt
// is set when the backend echoes a full attempt snapshot.
type SubmitAnswerResult struct {
	Answer           Answer   `json:"answer"`
	FinalizedAttempt *Attempt `json:"finalizedAttempt,omitempty"`
}

// LoginRequest is the payload for the auth service login call.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginResult carries the issued bearer token.
type LoginResult struct {
	Token string `json:"token"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
