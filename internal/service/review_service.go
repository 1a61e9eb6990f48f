package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vanhoc/mocktest/internal/model"
)

// ReviewStore is the slice of the attempt repository the review needs.
type ReviewStore interface {
	GetAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error)
	GetTestDetail(ctx context.Context, testID int64) (*model.MockTest, error)
}

// Verdict is the outcome of one reviewed question.
type Verdict string

const (
	VerdictCorrect    Verdict = "CORRECT"
	VerdictIncorrect  Verdict = "INCORRECT"
	VerdictUnanswered Verdict = "UNANSWERED"
	VerdictPending    Verdict = "PENDING_GRADING"
)

// ReviewQuestion pairs a question with the user's answer.
type ReviewQuestion struct {
	Question      model.MockQuestion
	Chosen        *model.MockOption
	Correct       *model.MockOption
	AnswerText    string
	Verdict       Verdict
	PointsAwarded int
}

// Review is the result page of a finalized attempt. Questions is nil while
// the test detail is still loading.
type Review struct {
	Attempt      *model.Attempt
	Test         *model.MockTest
	TotalPoint   int
	Percent      int
	Questions    []ReviewQuestion
	QuestionsErr error
}

// Loading reports whether only the summary is available.
func (r *Review) Loading() bool {
	return r.Questions == nil && r.QuestionsErr == nil
}

// ReviewService assembles the result view of a finalized attempt.
type ReviewService struct {
	repo ReviewStore
	log  zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(repo ReviewStore, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		repo: repo,
		log:  log.With().Str("component", "review_service").Logger(),
	}
}

// Load fetches the attempt and its test and calls emit twice: once with the
// summary as soon as the attempt is known, then with the joined review.
// When testIDHint is positive both fetches run concurrently. A failed test
// fetch is reported in QuestionsErr, not as an error.
func (s *ReviewService) Load(ctx context.Context, attemptID, testIDHint int64, emit func(*Review)) (*Review, error) {
	var (
		attempt *model.Attempt
		test    *model.MockTest
		testErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.repo.GetAttempt(gctx, attemptID)
		if err != nil {
			return fmt.Errorf("get attempt %d: %w", attemptID, err)
		}
		attempt = a
		if emit != nil {
			emit(summarize(a, nil))
		}
		return nil
	})
	if testIDHint > 0 {
		g.Go(func() error {
			test, testErr = s.repo.GetTestDetail(gctx, testIDHint)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Int64("attempt_id", attemptID).Msg("Failed to load attempt")
		return nil, err
	}

	if testIDHint <= 0 || (attempt.MockTestID != 0 && attempt.MockTestID != testIDHint) {
		test, testErr = s.repo.GetTestDetail(ctx, attempt.MockTestID)
	}

	review := summarize(attempt, test)
	if testErr != nil {
		s.log.Warn().Err(testErr).Int64("attempt_id", attemptID).Int64("test_id", attempt.MockTestID).Msg("Failed to load test detail for review")
		review.QuestionsErr = fmt.Errorf("get test %d: %w", attempt.MockTestID, testErr)
	} else {
		review.Questions = JoinReview(test, attempt)
	}
	if emit != nil {
		emit(review)
	}
	return review, nil
}

func summarize(a *model.Attempt, test *model.MockTest) *Review {
	r := &Review{Attempt: a, Test: test}
	if test != nil {
		r.TotalPoint = test.TotalPoint
	}
	r.Percent = ScorePercent(a.AttemptPoint, r.TotalPoint, a.MaxPoint)
	return r
}

// JoinReview matches every question of test with its answer in a.
func JoinReview(test *model.MockTest, a *model.Attempt) []ReviewQuestion {
	answers := ReduceAnswers(nil, FromSnapshot(a))
	out := make([]ReviewQuestion, 0, len(test.Questions))

	for _, q := range test.Questions {
		rq := ReviewQuestion{Question: q}
		ans, answered := answers[q.ID]

		if !q.IsChoice() {
			rq.AnswerText = ans.AnswerText
			if answered && ans.AnswerText != "" {
				rq.Verdict = VerdictPending
			} else {
				rq.Verdict = VerdictUnanswered
			}
			out = append(out, rq)
			continue
		}

		if c, ok := q.CorrectOption(); ok {
			correct := *c
			rq.Correct = &correct
		}
		if !answered || ans.OptionID == nil {
			rq.Verdict = VerdictUnanswered
			out = append(out, rq)
			continue
		}
		if o, ok := q.Option(*ans.OptionID); ok {
			chosen := *o
			rq.Chosen = &chosen
		}
		if rq.Chosen != nil && rq.Chosen.Answer {
			rq.Verdict = VerdictCorrect
			rq.PointsAwarded = q.Point
		} else {
			rq.Verdict = VerdictIncorrect
		}
		out = append(out, rq)
	}
	return out
}
