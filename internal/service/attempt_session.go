package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/archive"
	"github.com/vanhoc/mocktest/internal/auth"
	"github.com/vanhoc/mocktest/internal/draft"
	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/worker"
)

var (
	ErrNoTest            = apierr.New(apierr.KindValidation, "no test selected")
	ErrNoAttempt         = apierr.New(apierr.KindConflict, "no attempt in progress")
	ErrReadOnly          = apierr.New(apierr.KindConflict, "attempt is already submitted")
	ErrUnknownQuestion   = apierr.New(apierr.KindValidation, "question is not part of this test")
	ErrNotChoiceQuestion = apierr.New(apierr.KindValidation, "question is not a choice question")
	ErrNotEssayQuestion  = apierr.New(apierr.KindValidation, "question is not an essay question")
	ErrUnknownOption     = apierr.New(apierr.KindValidation, "option does not belong to this question")
	ErrSessionClosed     = errors.New("session closed")
	ErrSuperseded        = errors.New("superseded by a newer test selection")
	ErrNothingToRetry    = errors.New("nothing to retry")
)

// Phase is the lifecycle position of a Session.
type Phase string

const (
	PhaseNoTest          Phase = "NO_TEST"
	PhaseLoadingTest     Phase = "LOADING_TEST"
	PhaseStartingAttempt Phase = "STARTING_ATTEMPT"
	PhaseInProgress      Phase = "IN_PROGRESS"
	PhaseFinalizing      Phase = "FINALIZING"
	PhaseCompleted       Phase = "COMPLETED"
)

// BannerKind names the action that raised an error banner.
type BannerKind string

const (
	BannerTestLoad     BannerKind = "TEST_LOAD_ERROR"
	BannerAttemptStart BannerKind = "ATTEMPT_START_ERROR"
	BannerSubmit       BannerKind = "SUBMIT_ERROR"
	BannerFinalize     BannerKind = "FINALIZE_ERROR"
)

// Banner is a dismissable error notice. Blocking banners stop the session
// from progressing until Retry.
type Banner struct {
	Kind     BannerKind
	Message  string
	Err      error
	Blocking bool
}

// AttemptStore is the slice of the attempt repository a Session needs.
type AttemptStore interface {
	GetTestDetail(ctx context.Context, testID int64) (*model.MockTest, error)
	StartAttempt(ctx context.Context, testID int64) (*model.Attempt, error)
	SubmitAnswer(ctx context.Context, attemptID int64, req model.SubmitAnswerRequest) (*model.SubmitAnswerResult, error)
	FinalizeAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error)
}

// Authenticator resolves the signed-in account.
type Authenticator interface {
	Identity(ctx context.Context) (*auth.Identity, error)
}

// Navigator is told where to go once an attempt is finalized.
type Navigator interface {
	ShowResult(attemptID int64)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(attemptID int64)

func (f NavigatorFunc) ShowResult(attemptID int64) { f(attemptID) }

// ResultRecorder receives finalized attempts for archiving.
type ResultRecorder interface {
	Record(rec archive.Record)
}

// View is an immutable copy of the session state for rendering.
type View struct {
	Phase        Phase
	TestID       int64
	Test         *model.MockTest
	Attempt      *model.Attempt
	Answers      AnswerMap
	EssayBuffers map[int64]string
	TimeLeft     int
	Current      int
	Banner       *Banner
	ReadOnly     bool
	Finishing    bool
}

// CurrentQuestion returns the visible question.
func (v View) CurrentQuestion() (*model.MockQuestion, bool) {
	if v.Test == nil || v.Current < 0 || v.Current >= len(v.Test.Questions) {
		return nil, false
	}
	return &v.Test.Questions[v.Current], true
}

// EssayText is the text shown for an essay: the unsaved buffer when present,
// otherwise the persisted answer.
func (v View) EssayText(questionID int64) string {
	if text, ok := v.EssayBuffers[questionID]; ok {
		return text
	}
	return v.Answers[questionID].AnswerText
}

// SessionConfig wires a Session. Repo and Auth are required.
type SessionConfig struct {
	Repo     AttemptStore
	Auth     Authenticator
	Queue    *worker.AnswerQueue
	Drafts   draft.Store
	Nav      Navigator
	Recorder ResultRecorder
	OnChange func(View)
	Log      zerolog.Logger

	Now          func() time.Time
	NewTicker    TickerFunc
	TickInterval time.Duration

	// MutationTimeout bounds submit and finalize calls, which are detached
	// from the caller's context once issued.
	MutationTimeout time.Duration
}

// Session drives one user's attempt at one test. It is safe for concurrent
// use; network calls never hold the state lock.
type Session struct {
	repo            AttemptStore
	auth            Authenticator
	queue           *worker.AnswerQueue
	drafts          draft.Store
	nav             Navigator
	recorder        ResultRecorder
	onChange        func(View)
	log             zerolog.Logger
	now             func() time.Time
	newTicker       TickerFunc
	tickInterval    time.Duration
	mutationTimeout time.Duration

	mu          sync.Mutex
	closed      bool
	phase       Phase
	testID      int64
	gen         uint64
	loadCancel  context.CancelFunc
	test        *model.MockTest
	attempt     *model.Attempt
	accountID   int64
	answers     AnswerMap
	essay       map[int64]string
	countdown   *Countdown
	stopTicker  context.CancelFunc
	current     int
	banner      *Banner
	latch       *FinalizeLatch
	tickers     sync.WaitGroup
	resultShown bool
}

// NewSession creates a Session in the NO_TEST phase.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		repo:            cfg.Repo,
		auth:            cfg.Auth,
		queue:           cfg.Queue,
		drafts:          cfg.Drafts,
		nav:             cfg.Nav,
		recorder:        cfg.Recorder,
		onChange:        cfg.OnChange,
		log:             cfg.Log.With().Str("component", "attempt_session").Logger(),
		now:             cfg.Now,
		newTicker:       cfg.NewTicker,
		tickInterval:    cfg.TickInterval,
		mutationTimeout: cfg.MutationTimeout,
		phase:           PhaseNoTest,
		essay:           make(map[int64]string),
		latch:           NewFinalizeLatch(),
	}
	if s.queue == nil {
		s.queue = worker.NewAnswerQueue(cfg.Log)
	}
	if s.drafts == nil {
		s.drafts = draft.NewMemoryStore()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newTicker == nil {
		s.newTicker = NewRealTicker
	}
	if s.tickInterval <= 0 {
		s.tickInterval = time.Second
	}
	if s.mutationTimeout <= 0 {
		s.mutationTimeout = 30 * time.Second
	}
	return s
}

// Open binds the session to testID: it loads the test detail and starts or
// resumes the attempt. Re-opening the bound test with an attempt is a no-op.
// A different testID discards the current attempt and cancels any in-flight
// load.
func (s *Session) Open(ctx context.Context, testID int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if testID <= 0 {
		s.resetLocked()
		s.testID = 0
		s.phase = PhaseNoTest
		s.mu.Unlock()
		s.notify()
		return ErrNoTest
	}
	if testID == s.testID && s.attempt != nil {
		s.mu.Unlock()
		return nil
	}
	if testID != s.testID {
		s.resetLocked()
	}

	gen, loadCtx := s.beginLoadLocked(ctx)
	s.testID = testID
	s.phase = PhaseLoadingTest
	s.mu.Unlock()
	s.notify()

	return s.load(loadCtx, gen, testID)
}

// Retry re-runs the action behind a blocking banner, or a failed finalize.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	banner := s.banner
	testID := s.testID
	if banner == nil || testID == 0 {
		s.mu.Unlock()
		return ErrNothingToRetry
	}

	switch banner.Kind {
	case BannerTestLoad:
		gen, loadCtx := s.beginLoadLocked(ctx)
		s.phase = PhaseLoadingTest
		s.mu.Unlock()
		s.notify()
		return s.load(loadCtx, gen, testID)
	case BannerAttemptStart:
		gen, loadCtx := s.beginLoadLocked(ctx)
		s.phase = PhaseStartingAttempt
		s.mu.Unlock()
		s.notify()
		return s.start(loadCtx, gen, testID)
	case BannerFinalize:
		s.mu.Unlock()
		_, err := s.Finish(ctx)
		return err
	default:
		s.banner = nil
		s.mu.Unlock()
		s.notify()
		return ErrNothingToRetry
	}
}

// DismissBanner clears the current banner.
func (s *Session) DismissBanner() {
	s.mu.Lock()
	s.banner = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Session) beginLoadLocked(parent context.Context) (uint64, context.Context) {
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.gen++
	ctx, cancel := context.WithCancel(parent)
	s.loadCancel = cancel
	s.banner = nil
	return s.gen, ctx
}

func (s *Session) load(ctx context.Context, gen uint64, testID int64) error {
	log := s.log.With().Int64("test_id", testID).Logger()

	test, err := s.repo.GetTestDetail(ctx, testID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		log.Debug().Msg("Discarding stale test detail")
		return ErrSuperseded
	}
	if err != nil {
		s.setBannerLocked(BannerTestLoad, err, true)
		s.mu.Unlock()
		log.Error().Err(err).Msg("Failed to load test detail")
		s.notify()
		return fmt.Errorf("load test %d: %w", testID, err)
	}
	s.test = test
	s.phase = PhaseStartingAttempt
	s.mu.Unlock()
	s.notify()

	return s.start(ctx, gen, testID)
}

func (s *Session) start(ctx context.Context, gen uint64, testID int64) error {
	log := s.log.With().Int64("test_id", testID).Logger()

	s.mu.Lock()
	if s.attempt != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return ErrSuperseded
		}
		s.setBannerLocked(BannerAttemptStart, err, true)
		s.mu.Unlock()
		log.Error().Err(err).Msg("Failed to start attempt")
		s.notify()
		return fmt.Errorf("start attempt for test %d: %w", testID, err)
	}

	id, err := s.auth.Identity(ctx)
	if err != nil {
		return fail(err)
	}
	attempt, err := s.repo.StartAttempt(ctx, testID)
	if err != nil {
		return fail(err)
	}
	if attempt.MockTestID == 0 {
		attempt.MockTestID = testID
	}

	drafts, derr := s.drafts.Load(ctx, attempt.ID)
	if derr != nil {
		log.Warn().Err(derr).Int64("attempt_id", attempt.ID).Msg("Failed to load essay drafts")
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.attempt = attempt
	s.accountID = id.AccountID
	s.answers = ReduceAnswers(nil, FromSnapshot(attempt))
	s.essay = make(map[int64]string)
	for qid, text := range drafts {
		q, ok := s.test.Question(qid)
		if !ok || q.IsChoice() || text == s.answers[qid].AnswerText {
			continue
		}
		s.essay[qid] = text
	}

	if attempt.Completed() {
		first := s.completeLocked(attempt)
		s.mu.Unlock()
		log.Info().Int64("attempt_id", attempt.ID).Msg("Attempt already completed")
		s.notify()
		s.afterComplete(attempt, first)
		return nil
	}

	s.countdown = NewCountdown(s.test.DurationSeconds, attempt.StartTime, s.now())
	s.phase = PhaseInProgress
	left := s.countdown.Remaining()
	if left > 0 {
		s.startTickerLocked(gen)
	} else {
		s.tickers.Add(1)
	}
	s.mu.Unlock()

	log.Info().Int64("attempt_id", attempt.ID).Int("time_left", left).Msg("Attempt in progress")
	s.notify()

	if left == 0 {
		go func() {
			defer s.tickers.Done()
			s.autoFinish()
		}()
	}
	return nil
}

func (s *Session) startTickerLocked(gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopTicker = cancel
	t := s.newTicker(s.tickInterval)
	s.tickers.Add(1)
	go s.runTicker(ctx, t, gen)
}

func (s *Session) runTicker(ctx context.Context, t Ticker, gen uint64) {
	defer s.tickers.Done()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.mu.Lock()
			if gen != s.gen || s.countdown == nil || s.phase == PhaseCompleted {
				s.mu.Unlock()
				return
			}
			left, expired := s.countdown.Tick()
			s.mu.Unlock()
			s.notify()

			if expired {
				s.autoFinish()
			}
			if left <= 0 {
				return
			}
		}
	}
}

func (s *Session) autoFinish() {
	if _, err := s.finish(context.Background(), true); err != nil {
		s.log.Warn().Err(err).Msg("Auto-submit failed")
	}
}

// Finish finalizes the attempt. Concurrent callers share one request and
// its result; a finalized attempt is returned without a server call.
func (s *Session) Finish(ctx context.Context) (*model.Attempt, error) {
	return s.finish(ctx, false)
}

func (s *Session) finish(ctx context.Context, auto bool) (*model.Attempt, error) {
	s.mu.Lock()
	if s.attempt == nil {
		s.mu.Unlock()
		return nil, ErrNoAttempt
	}
	latch := s.latch
	attemptID := s.attempt.ID
	run, wait := latch.Begin(auto)
	if !run {
		s.mu.Unlock()
		if wait == nil {
			return nil, nil
		}
		select {
		case <-wait:
			return latch.Result()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.phase = PhaseFinalizing
	if s.banner != nil && s.banner.Kind == BannerFinalize {
		s.banner = nil
	}
	s.mu.Unlock()
	s.notify()

	log := s.log.With().Int64("attempt_id", attemptID).Bool("auto", auto).Logger()
	log.Info().Msg("Finalizing attempt")

	mctx, cancel := s.mutationContext(ctx)
	final, err := s.repo.FinalizeAttempt(mctx, attemptID)
	cancel()

	s.mu.Lock()
	current := s.attempt != nil && s.attempt.ID == attemptID
	if err != nil {
		latch.Finish(nil, err)
		if current && s.phase == PhaseFinalizing {
			s.phase = PhaseInProgress
			s.setBannerLocked(BannerFinalize, err, false)
		}
		s.mu.Unlock()
		log.Error().Err(err).Msg("Failed to finalize attempt")
		s.notify()
		return nil, fmt.Errorf("finalize attempt %d: %w", attemptID, err)
	}
	latch.Finish(final, nil)
	first := false
	if current {
		first = s.completeLocked(final)
	}
	s.mu.Unlock()

	log.Info().Int("attempt_point", final.AttemptPoint).Msg("Attempt finalized")
	s.notify()
	if current {
		s.afterComplete(final, first)
	}
	return final, nil
}

// completeLocked applies a finalized snapshot. It reports whether this call
// moved the session to COMPLETED.
func (s *Session) completeLocked(final *model.Attempt) bool {
	first := !s.resultShown
	s.resultShown = true
	s.attempt = final
	s.answers = ReduceAnswers(s.answers, FromSnapshot(final))
	s.essay = make(map[int64]string)
	s.phase = PhaseCompleted
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.latch.Complete(final)
	return first
}

func (s *Session) afterComplete(final *model.Attempt, first bool) {
	if !first {
		return
	}

	s.mu.Lock()
	account := s.accountID
	total := 0
	if s.test != nil {
		total = s.test.TotalPoint
	}
	s.mu.Unlock()

	ctx, cancel := s.mutationContext(context.Background())
	defer cancel()
	if err := s.drafts.Clear(ctx, final.ID); err != nil {
		s.log.Warn().Err(err).Int64("attempt_id", final.ID).Msg("Failed to clear essay drafts")
	}

	if s.recorder != nil {
		percent := ScorePercent(final.AttemptPoint, total, final.MaxPoint)
		s.recorder.Record(archive.NewRecord(final, account, percent))
	}
	if s.nav != nil {
		s.nav.ShowResult(final.ID)
	}
}

// SelectOption persists a choice answer. The AnswerMap only changes to the
// value confirmed by the server.
func (s *Session) SelectOption(ctx context.Context, questionID, optionID int64) error {
	s.mu.Lock()
	attemptID, account, err := s.editableLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q, ok := s.test.Question(questionID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if !q.IsChoice() {
		s.mu.Unlock()
		return ErrNotChoiceQuestion
	}
	if _, ok := q.Option(optionID); !ok {
		s.mu.Unlock()
		return ErrUnknownOption
	}
	s.mu.Unlock()

	return s.submit(ctx, attemptID, model.SubmitAnswerRequest{
		AccountID:      account,
		MockQuestionID: questionID,
		MockAttemptID:  attemptID,
		MockOptionID:   model.Int64Ptr(optionID),
	})
}

// EditEssay buffers essay text locally. Nothing is sent until BlurEssay.
func (s *Session) EditEssay(questionID int64, text string) error {
	s.mu.Lock()
	attemptID, _, err := s.editableLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q, ok := s.test.Question(questionID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if q.IsChoice() {
		s.mu.Unlock()
		return ErrNotEssayQuestion
	}
	s.essay[questionID] = text
	s.mu.Unlock()
	s.notify()

	ctx, cancel := s.mutationContext(context.Background())
	defer cancel()
	if err := s.drafts.Save(ctx, attemptID, questionID, text); err != nil {
		s.log.Warn().Err(err).Int64("attempt_id", attemptID).Int64("question_id", questionID).Msg("Failed to save essay draft")
	}
	return nil
}

// BlurEssay sends the buffered essay text when it differs from the
// persisted answer.
func (s *Session) BlurEssay(ctx context.Context, questionID int64) error {
	s.mu.Lock()
	attemptID, account, err := s.editableLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q, ok := s.test.Question(questionID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if q.IsChoice() {
		s.mu.Unlock()
		return ErrNotEssayQuestion
	}
	text, buffered := s.essay[questionID]
	if !buffered {
		s.mu.Unlock()
		return nil
	}
	if text == s.answers[questionID].AnswerText {
		delete(s.essay, questionID)
		s.mu.Unlock()
		s.dropDraft(attemptID, questionID)
		return nil
	}
	s.mu.Unlock()

	err = s.submit(ctx, attemptID, model.SubmitAnswerRequest{
		AccountID:      account,
		MockQuestionID: questionID,
		MockAttemptID:  attemptID,
		AnswerText:     model.StringPtr(text),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	settled := false
	if cur, ok := s.essay[questionID]; ok && cur == s.answers[questionID].AnswerText {
		delete(s.essay, questionID)
		settled = true
	}
	s.mu.Unlock()
	if settled {
		s.dropDraft(attemptID, questionID)
		s.notify()
	}
	return nil
}

func (s *Session) dropDraft(attemptID, questionID int64) {
	ctx, cancel := s.mutationContext(context.Background())
	defer cancel()
	if err := s.drafts.Delete(ctx, attemptID, questionID); err != nil {
		s.log.Warn().Err(err).Int64("attempt_id", attemptID).Int64("question_id", questionID).Msg("Failed to delete essay draft")
	}
}

func (s *Session) editableLocked() (attemptID, accountID int64, err error) {
	if s.closed {
		return 0, 0, ErrSessionClosed
	}
	if s.attempt == nil || s.test == nil {
		return 0, 0, ErrNoAttempt
	}
	if s.readOnlyLocked() {
		return 0, 0, ErrReadOnly
	}
	return s.attempt.ID, s.accountID, nil
}

func (s *Session) readOnlyLocked() bool {
	return s.phase == PhaseCompleted || s.phase == PhaseFinalizing ||
		(s.attempt != nil && s.attempt.Completed())
}

// submit runs one answer submission on the question's lane.
func (s *Session) submit(ctx context.Context, attemptID int64, req model.SubmitAnswerRequest) error {
	log := s.log.With().Int64("attempt_id", attemptID).Int64("question_id", req.MockQuestionID).Logger()

	return s.queue.Run(ctx, req.MockQuestionID, func(jobCtx context.Context) error {
		s.mu.Lock()
		if s.attempt == nil || s.attempt.ID != attemptID {
			s.mu.Unlock()
			return ErrSuperseded
		}
		if s.readOnlyLocked() {
			s.mu.Unlock()
			return ErrReadOnly
		}
		s.mu.Unlock()

		mctx, cancel := s.mutationContext(jobCtx)
		res, err := s.repo.SubmitAnswer(mctx, attemptID, req)
		cancel()

		s.mu.Lock()
		if s.attempt == nil || s.attempt.ID != attemptID {
			s.mu.Unlock()
			return ErrSuperseded
		}
		if err != nil {
			s.setBannerLocked(BannerSubmit, err, false)
			s.mu.Unlock()
			log.Error().Err(err).Msg("Failed to submit answer")
			s.notify()
			return fmt.Errorf("submit answer: %w", err)
		}

		if s.banner != nil && s.banner.Kind == BannerSubmit {
			s.banner = nil
		}
		answer := res.Answer
		if answer.MockQuestionID == 0 {
			answer = model.Answer{
				MockQuestionID: req.MockQuestionID,
				MockOptionID:   req.MockOptionID,
				AnswerText:     req.AnswerText,
			}
		}

		var final *model.Attempt
		first := false
		switch {
		case res.FinalizedAttempt != nil && res.FinalizedAttempt.Completed():
			final = res.FinalizedAttempt
			first = s.completeLocked(final)
		case res.FinalizedAttempt != nil:
			s.answers = ReduceAnswers(s.answers, FromSnapshot(res.FinalizedAttempt))
		default:
			s.answers = ReduceAnswers(s.answers, FromAnswer(answer))
		}
		s.mu.Unlock()

		s.notify()
		if final != nil {
			log.Info().Msg("Attempt finalized by the server during submission")
			s.afterComplete(final, first)
		}
		return nil
	})
}

func (s *Session) mutationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), s.mutationTimeout)
}

// GoTo makes the question at index visible, clamped to the test bounds.
func (s *Session) GoTo(index int) int {
	s.mu.Lock()
	if s.test == nil || len(s.test.Questions) == 0 {
		s.mu.Unlock()
		return 0
	}
	if index < 0 {
		index = 0
	}
	if last := len(s.test.Questions) - 1; index > last {
		index = last
	}
	s.current = index
	s.mu.Unlock()
	s.notify()
	return index
}

// Next moves to the following question.
func (s *Session) Next() int {
	s.mu.Lock()
	i := s.current + 1
	s.mu.Unlock()
	return s.GoTo(i)
}

// Prev moves to the preceding question.
func (s *Session) Prev() int {
	s.mu.Lock()
	i := s.current - 1
	s.mu.Unlock()
	return s.GoTo(i)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		Phase:        s.phase,
		TestID:       s.testID,
		Test:         s.test,
		Answers:      s.answers.Clone(),
		EssayBuffers: make(map[int64]string, len(s.essay)),
		Current:      s.current,
		ReadOnly:     s.readOnlyLocked(),
		Finishing:    s.latch.State() == FinalizeRunning,
	}
	if s.attempt != nil {
		a := *s.attempt
		a.MockAnswers = append([]model.Answer(nil), s.attempt.MockAnswers...)
		v.Attempt = &a
	}
	for k, text := range s.essay {
		v.EssayBuffers[k] = text
	}
	if s.countdown != nil {
		v.TimeLeft = s.countdown.Remaining()
	}
	if s.banner != nil {
		b := *s.banner
		v.Banner = &b
	}
	return v
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}

func (s *Session) setBannerLocked(kind BannerKind, err error, blocking bool) {
	s.banner = &Banner{
		Kind:     kind,
		Message:  bannerMessage(kind, err),
		Err:      err,
		Blocking: blocking,
	}
}

func bannerMessage(kind BannerKind, err error) string {
	msg := apierr.UserMessage(err)
	switch kind {
	case BannerTestLoad:
		return "Could not load the test. " + msg
	case BannerAttemptStart:
		return "Could not start the attempt. " + msg
	case BannerSubmit:
		return "Your answer was not saved. " + msg
	case BannerFinalize:
		return "Could not submit the attempt. " + msg
	default:
		return msg
	}
}

func (s *Session) resetLocked() {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.gen++
	s.test = nil
	s.attempt = nil
	s.accountID = 0
	s.answers = nil
	s.essay = make(map[int64]string)
	s.countdown = nil
	s.current = 0
	s.banner = nil
	s.latch = NewFinalizeLatch()
	s.resultShown = false
}

// Close stops the timer, cancels in-flight loads and waits for queued
// submissions and any running auto-submit.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.mu.Unlock()

	s.tickers.Wait()
	s.queue.Close()
}
