// Package apitest is an in-memory implementation of the auth and mock-test
// REST contract, served by gin. Tests run the real clients against it.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vanhoc/mocktest/internal/auth"
	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/response"
	"github.com/vanhoc/mocktest/internal/validator"
)

// Route names used by Calls, FailNext and Delay.
const (
	RouteLogin      = "login"
	RouteGetTest    = "get_test"
	RouteStart      = "start_attempt"
	RouteSubmit     = "submit_answer"
	RouteGrade      = "grade_attempt"
	RouteGetAttempt = "get_attempt"
)

type account struct {
	id       int64
	password string
}

type failure struct {
	status int
	code   response.ErrCode
}

// Server is the fake backend. All methods are safe for concurrent use.
type Server struct {
	secret []byte

	mu           sync.Mutex
	now          func() time.Time
	tests        map[int64]model.MockTest
	attempts     map[int64]*model.Attempt
	owners       map[int64]int64
	accounts     map[string]account
	nextAttempt  int64
	calls        map[string]int
	failures     map[string][]failure
	delays       map[string]time.Duration
	echoSnapshot bool
}

// New creates an empty Server signing tokens with secret.
func New(secret string) *Server {
	return &Server{
		secret:      []byte(secret),
		now:         time.Now,
		tests:       make(map[int64]model.MockTest),
		attempts:    make(map[int64]*model.Attempt),
		owners:      make(map[int64]int64),
		accounts:    make(map[string]account),
		nextAttempt: 100,
		calls:       make(map[string]int),
		failures:    make(map[string][]failure),
		delays:      make(map[string]time.Duration),
	}
}

// Start serves the fake backend on a local listener.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	validator.Setup()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(response.RequestIDMiddleware())

	router.POST("/auth/login", s.track(RouteLogin), s.login)

	authed := router.Group("/")
	authed.Use(s.requireJWT())
	{
		authed.GET("/mock-tests/:test_id", s.track(RouteGetTest), s.getTest)
		authed.POST("/mock-tests/:test_id/attempts/start", s.track(RouteStart), s.startAttempt)
		authed.POST("/mock-attempts/:attempt_id/answers", s.track(RouteSubmit), s.submitAnswer)
		authed.POST("/mock-attempts/:attempt_id/grade", s.track(RouteGrade), s.gradeAttempt)
		authed.GET("/mock-attempts/:attempt_id", s.track(RouteGetAttempt), s.getAttempt)
	}

	return router
}

// ─── Seeding ───────────────────────────────────────────────────────────

// AddTest registers a test definition.
func (s *Server) AddTest(t model.MockTest) {
	s.mu.Lock()
	s.tests[t.ID] = t
	s.mu.Unlock()
}

// AddAccount registers login credentials.
func (s *Server) AddAccount(email, password string, accountID int64) {
	s.mu.Lock()
	s.accounts[email] = account{id: accountID, password: password}
	s.mu.Unlock()
}

// IssueToken signs a token for accountID valid for ttl.
func (s *Server) IssueToken(accountID int64, ttl time.Duration) string {
	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: accountID,
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token
}

// SetClock replaces the time source used for attempt start and end times.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// EchoSnapshots makes submit-answer responses carry the full attempt.
func (s *Server) EchoSnapshots(on bool) {
	s.mu.Lock()
	s.echoSnapshot = on
	s.mu.Unlock()
}

// ─── Inspection & fault injection ──────────────────────────────────────

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// FailNext makes the next request to route fail with status and code.
func (s *Server) FailNext(route string, status int, code response.ErrCode) {
	s.mu.Lock()
	s.failures[route] = append(s.failures[route], failure{status: status, code: code})
	s.mu.Unlock()
}

// Delay holds every request to route for d before handling it.
func (s *Server) Delay(route string, d time.Duration) {
	s.mu.Lock()
	s.delays[route] = d
	s.mu.Unlock()
}

// Attempt returns a copy of a stored attempt.
func (s *Server) Attempt(id int64) (model.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return model.Attempt{}, false
	}
	return cloneAttempt(a), true
}

func (s *Server) track(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[route]++
		delay := s.delays[route]
		var fail *failure
		if queued := s.failures[route]; len(queued) > 0 {
			fail = &queued[0]
			s.failures[route] = queued[1:]
		}
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if fail != nil {
			response.AbortFail(c, fail.status, fail.code)
			return
		}
		c.Next()
	}
}

func cloneAttempt(a *model.Attempt) model.Attempt {
	out := *a
	out.MockAnswers = append([]model.Answer(nil), a.MockAnswers...)
	if a.EndTime != nil {
		end := *a.EndTime
		out.EndTime = &end
	}
	return out
}
