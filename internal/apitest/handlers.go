package apitest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/response"
	"github.com/vanhoc/mocktest/internal/validator"
)

// login godoc
// POST /auth/login
func (s *Server) login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acc.password != req.Password {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	response.Success(c, http.StatusOK, model.LoginResult{Token: s.IssueToken(acc.id, 24*time.Hour)})
}

// getTest godoc
// GET /mock-tests/:test_id
// Option correctness is revealed only to accounts holding a completed attempt.
func (s *Server) getTest(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tests[testID]
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}

	if !s.hasCompletedLocked(testID, accountID(c)) {
		t = hideAnswers(t)
	}
	response.Success(c, http.StatusOK, t)
}

// startAttempt godoc
// POST /mock-tests/:test_id/attempts/start
// Idempotent: an in-progress attempt of the same account is returned as is.
func (s *Server) startAttempt(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}
	account := accountID(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tests[testID]
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}

	for id, a := range s.attempts {
		if a.MockTestID == testID && s.owners[id] == account && a.Status == model.AttemptStatusInProgress {
			response.Success(c, http.StatusOK, cloneAttempt(a))
			return
		}
	}

	s.nextAttempt++
	a := &model.Attempt{
		ID:          s.nextAttempt,
		MockTestID:  testID,
		Status:      model.AttemptStatusInProgress,
		StartTime:   s.now().UTC().Truncate(time.Second),
		MaxPoint:    t.TotalPoints(),
		MockAnswers: []model.Answer{},
	}
	s.attempts[a.ID] = a
	s.owners[a.ID] = account

	response.Success(c, http.StatusCreated, cloneAttempt(a))
}

// submitAnswer godoc
// POST /mock-attempts/:attempt_id/answers
// Overwrites the previous answer of the same question. An attempt whose
// time ran out is finalized instead and returned as finalizedAttempt.
func (s *Server) submitAnswer(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedAttemptLocked(c, attemptID)
	if !ok {
		return
	}
	if req.MockAttemptID != attemptID || req.AccountID != accountID(c) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if a.Completed() {
		response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
		return
	}

	t := s.tests[a.MockTestID]
	q, ok := t.Question(req.MockQuestionID)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInTest)
		return
	}

	answer := model.Answer{MockQuestionID: q.ID}
	if q.IsChoice() {
		if req.MockOptionID == nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"mockOptionId": "mockOptionId is required"})
			return
		}
		if _, ok := q.Option(*req.MockOptionID); !ok {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"mockOptionId": "option does not belong to question"})
			return
		}
		id := *req.MockOptionID
		answer.MockOptionID = &id
	} else {
		if req.AnswerText == nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"answerText": "answerText is required"})
			return
		}
		text := *req.AnswerText
		answer.AnswerText = &text
	}

	if s.expiredLocked(a, t) {
		s.gradeLocked(a)
		final := cloneAttempt(a)
		response.Success(c, http.StatusOK, model.SubmitAnswerResult{Answer: answer, FinalizedAttempt: &final})
		return
	}

	replaced := false
	for i := range a.MockAnswers {
		if a.MockAnswers[i].MockQuestionID == answer.MockQuestionID {
			a.MockAnswers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		a.MockAnswers = append(a.MockAnswers, answer)
	}

	res := model.SubmitAnswerResult{Answer: answer}
	if s.echoSnapshot {
		snap := cloneAttempt(a)
		res.FinalizedAttempt = &snap
	}
	response.Success(c, http.StatusOK, res)
}

// gradeAttempt godoc
// POST /mock-attempts/:attempt_id/grade
// Idempotent: grading a completed attempt returns the stored result.
func (s *Server) gradeAttempt(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedAttemptLocked(c, attemptID)
	if !ok {
		return
	}
	if !a.Completed() {
		s.gradeLocked(a)
	}
	response.Success(c, http.StatusOK, cloneAttempt(a))
}

// getAttempt godoc
// GET /mock-attempts/:attempt_id
func (s *Server) getAttempt(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedAttemptLocked(c, attemptID)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, cloneAttempt(a))
}

// ─── Internal helpers ──────────────────────────────────────────────────

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func (s *Server) ownedAttemptLocked(c *gin.Context, attemptID int64) (*model.Attempt, bool) {
	a, ok := s.attempts[attemptID]
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return nil, false
	}
	if s.owners[attemptID] != accountID(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return nil, false
	}
	return a, true
}

func (s *Server) hasCompletedLocked(testID, account int64) bool {
	for id, a := range s.attempts {
		if a.MockTestID == testID && s.owners[id] == account && a.Completed() {
			return true
		}
	}
	return false
}

func (s *Server) expiredLocked(a *model.Attempt, t model.MockTest) bool {
	if t.DurationSeconds <= 0 {
		return false
	}
	deadline := a.StartTime.Add(time.Duration(t.DurationSeconds) * time.Second)
	return !s.now().Before(deadline)
}

// gradeLocked scores choice answers against the answer key; essays wait
// for a teacher and score nothing here.
func (s *Server) gradeLocked(a *model.Attempt) {
	t := s.tests[a.MockTestID]
	points := 0
	for _, ans := range a.MockAnswers {
		q, ok := t.Question(ans.MockQuestionID)
		if !ok || !q.IsChoice() || ans.MockOptionID == nil {
			continue
		}
		if opt, ok := q.Option(*ans.MockOptionID); ok && opt.Answer {
			points += q.Point
		}
	}

	end := s.now().UTC()
	a.Status = model.AttemptStatusCompleted
	a.EndTime = &end
	a.AttemptPoint = points
	a.MaxPoint = t.TotalPoints()
}

func hideAnswers(t model.MockTest) model.MockTest {
	questions := make([]model.MockQuestion, len(t.Questions))
	for i, q := range t.Questions {
		opts := make([]model.MockOption, len(q.Options))
		for j, o := range q.Options {
			opts[j] = model.MockOption{ID: o.ID, Name: o.Name}
		}
		q.Options = opts
		questions[i] = q
	}
	t.Questions = questions
	return t
}
