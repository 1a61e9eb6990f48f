package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/archive"
	"github.com/vanhoc/mocktest/internal/auth"
	"github.com/vanhoc/mocktest/internal/draft"
	"github.com/vanhoc/mocktest/internal/model"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeRepo struct {
	mu        sync.Mutex
	calls     map[string]int
	submitted []model.SubmitAnswerRequest

	getTest  func(ctx context.Context, testID int64) (*model.MockTest, error)
	start    func(ctx context.Context, testID int64) (*model.Attempt, error)
	submit   func(ctx context.Context, req model.SubmitAnswerRequest) (*model.SubmitAnswerResult, error)
	finalize func(ctx context.Context, attemptID int64) (*model.Attempt, error)
	get      func(ctx context.Context, attemptID int64) (*model.Attempt, error)
}

func newFakeRepo(test *model.MockTest, attempt *model.Attempt) *fakeRepo {
	r := &fakeRepo{calls: make(map[string]int)}
	r.getTest = func(context.Context, int64) (*model.MockTest, error) { return test, nil }
	r.start = func(context.Context, int64) (*model.Attempt, error) {
		a := *attempt
		return &a, nil
	}
	r.submit = func(_ context.Context, req model.SubmitAnswerRequest) (*model.SubmitAnswerResult, error) {
		return &model.SubmitAnswerResult{Answer: model.Answer{
			MockQuestionID: req.MockQuestionID,
			MockOptionID:   req.MockOptionID,
			AnswerText:     req.AnswerText,
		}}, nil
	}
	r.finalize = func(_ context.Context, attemptID int64) (*model.Attempt, error) {
		a := *attempt
		a.ID = attemptID
		a.Status = model.AttemptStatusCompleted
		a.AttemptPoint = 7
		a.MaxPoint = 10
		return &a, nil
	}
	r.get = func(_ context.Context, attemptID int64) (*model.Attempt, error) {
		a := *attempt
		a.ID = attemptID
		return &a, nil
	}
	return r
}

func (r *fakeRepo) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *fakeRepo) inc(name string) {
	r.mu.Lock()
	r.calls[name]++
	r.mu.Unlock()
}

func (r *fakeRepo) GetTestDetail(ctx context.Context, testID int64) (*model.MockTest, error) {
	r.inc("getTest")
	return r.getTest(ctx, testID)
}

func (r *fakeRepo) StartAttempt(ctx context.Context, testID int64) (*model.Attempt, error) {
	r.inc("start")
	return r.start(ctx, testID)
}

func (r *fakeRepo) SubmitAnswer(ctx context.Context, _ int64, req model.SubmitAnswerRequest) (*model.SubmitAnswerResult, error) {
	r.mu.Lock()
	r.calls["submit"]++
	r.submitted = append(r.submitted, req)
	r.mu.Unlock()
	return r.submit(ctx, req)
}

func (r *fakeRepo) FinalizeAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error) {
	r.inc("finalize")
	return r.finalize(ctx, attemptID)
}

func (r *fakeRepo) GetAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error) {
	r.inc("getAttempt")
	return r.get(ctx, attemptID)
}

type fakeAuth struct {
	err error
}

func (a fakeAuth) Identity(context.Context) (*auth.Identity, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &auth.Identity{Token: "t", AccountID: 7}, nil
}

type fakeNav struct {
	mu  sync.Mutex
	ids []int64
}

func (n *fakeNav) ShowResult(id int64) {
	n.mu.Lock()
	n.ids = append(n.ids, id)
	n.mu.Unlock()
}

func (n *fakeNav) shown() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []archive.Record
}

func (f *fakeRecorder) Record(rec archive.Record) {
	f.mu.Lock()
	f.recs = append(f.recs, rec)
	f.mu.Unlock()
}

func (f *fakeRecorder) records() []archive.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]archive.Record(nil), f.recs...)
}

type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

func (m *manualTicker) tick() {
	select {
	case m.ch <- testNow:
	default:
	}
}

// sampleTest builds a two-question test: a choice question (id 1, options
// 11 correct and 12) and an essay (id 2).
func sampleTest(duration int) *model.MockTest {
	return &model.MockTest{
		ID:              5,
		Name:            "Algebra",
		DurationSeconds: duration,
		TotalPoint:      10,
		Questions: []model.MockQuestion{
			{ID: 1, Question: "2+2?", QuestionType: model.QuestionTypeMultipleChoices, Point: 7, Options: []model.MockOption{
				{ID: 11, Name: "4", Answer: true},
				{ID: 12, Name: "5"},
			}},
			{ID: 2, Question: "Explain.", QuestionType: model.QuestionTypeEssay, Point: 3},
		},
	}
}

func sampleAttempt(startedAgo time.Duration) *model.Attempt {
	return &model.Attempt{
		ID:         101,
		MockTestID: 5,
		Status:     model.AttemptStatusInProgress,
		StartTime:  testNow.Add(-startedAgo),
	}
}

type harness struct {
	session  *Session
	repo     *fakeRepo
	ticker   *manualTicker
	nav      *fakeNav
	recorder *fakeRecorder
	drafts   *draft.MemoryStore
}

func newHarness(repo *fakeRepo, authErr error) *harness {
	h := &harness{
		repo:     repo,
		ticker:   &manualTicker{ch: make(chan time.Time, 8)},
		nav:      &fakeNav{},
		recorder: &fakeRecorder{},
		drafts:   draft.NewMemoryStore(),
	}
	h.session = NewSession(SessionConfig{
		Repo:      repo,
		Auth:      fakeAuth{err: authErr},
		Drafts:    h.drafts,
		Nav:       h.nav,
		Recorder:  h.recorder,
		Log:       zerolog.Nop(),
		Now:       func() time.Time { return testNow },
		NewTicker: func(time.Duration) Ticker { return h.ticker },
	})
	return h
}

var errBoom = apierr.New(apierr.KindServerError, "boom")
