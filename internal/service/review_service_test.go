package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/model"
)

func finalizedAttempt() *model.Attempt {
	return &model.Attempt{
		ID:           101,
		MockTestID:   5,
		Status:       model.AttemptStatusCompleted,
		AttemptPoint: 7,
		MaxPoint:     10,
		MockAnswers: []model.Answer{
			{MockQuestionID: 1, MockOptionID: model.Int64Ptr(11)},
			{MockQuestionID: 2, AnswerText: model.StringPtr("because")},
		},
	}
}

func TestJoinReview(t *testing.T) {
	test := sampleTest(60)
	test.Questions = append(test.Questions, model.MockQuestion{
		ID: 3, QuestionType: model.QuestionTypeMultipleChoices, Point: 1,
		Options: []model.MockOption{{ID: 31, Answer: true}, {ID: 32}},
	}, model.MockQuestion{
		ID: 4, QuestionType: model.QuestionTypeMultipleChoices, Point: 1,
		Options: []model.MockOption{{ID: 41, Answer: true}, {ID: 42}},
	})
	a := finalizedAttempt()
	a.MockAnswers = append(a.MockAnswers, model.Answer{MockQuestionID: 3, MockOptionID: model.Int64Ptr(32)})

	got := JoinReview(test, a)

	require.Len(t, got, 4)
	assert.Equal(t, VerdictCorrect, got[0].Verdict)
	assert.Equal(t, 7, got[0].PointsAwarded)
	assert.Equal(t, VerdictPending, got[1].Verdict)
	assert.Equal(t, "because", got[1].AnswerText)
	assert.Equal(t, VerdictIncorrect, got[2].Verdict)
	assert.Equal(t, int64(31), got[2].Correct.ID)
	assert.Equal(t, int64(32), got[2].Chosen.ID)
	assert.Equal(t, VerdictUnanswered, got[3].Verdict)
}

type emitted struct {
	mu      sync.Mutex
	reviews []*Review
}

func (e *emitted) emit(r *Review) {
	e.mu.Lock()
	e.reviews = append(e.reviews, r)
	e.mu.Unlock()
}

func TestReviewService_LoadEmitsSummaryThenJoined(t *testing.T) {
	repo := newFakeRepo(sampleTest(60), sampleAttempt(0))
	repo.get = func(context.Context, int64) (*model.Attempt, error) { return finalizedAttempt(), nil }
	svc := NewReviewService(repo, zerolog.Nop())

	var out emitted
	review, err := svc.Load(context.Background(), 101, 5, out.emit)
	require.NoError(t, err)

	require.Len(t, out.reviews, 2)
	assert.True(t, out.reviews[0].Loading())
	assert.Equal(t, 70, out.reviews[0].Percent)
	assert.False(t, out.reviews[1].Loading())
	assert.Equal(t, review, out.reviews[1])
	assert.Equal(t, 70, review.Percent)
	assert.Len(t, review.Questions, 2)
	assert.Equal(t, 1, repo.count("getTest"))
}

func TestReviewService_LoadWithoutHintUsesAttemptTest(t *testing.T) {
	repo := newFakeRepo(sampleTest(60), sampleAttempt(0))
	repo.get = func(context.Context, int64) (*model.Attempt, error) { return finalizedAttempt(), nil }
	var requested int64
	repo.getTest = func(_ context.Context, id int64) (*model.MockTest, error) {
		requested = id
		return sampleTest(60), nil
	}
	svc := NewReviewService(repo, zerolog.Nop())

	review, err := svc.Load(context.Background(), 101, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(5), requested)
	assert.Len(t, review.Questions, 2)
}

func TestReviewService_TestFailureKeepsSummary(t *testing.T) {
	repo := newFakeRepo(sampleTest(60), sampleAttempt(0))
	repo.get = func(context.Context, int64) (*model.Attempt, error) { return finalizedAttempt(), nil }
	repo.getTest = func(context.Context, int64) (*model.MockTest, error) {
		return nil, apierr.New(apierr.KindNotFound, "gone")
	}
	svc := NewReviewService(repo, zerolog.Nop())

	review, err := svc.Load(context.Background(), 101, 5, nil)
	require.NoError(t, err)

	assert.Nil(t, review.Questions)
	assert.ErrorIs(t, review.QuestionsErr, apierr.ErrNotFound)
	assert.Equal(t, 70, review.Percent)
}

func TestReviewService_AttemptFailure(t *testing.T) {
	repo := newFakeRepo(sampleTest(60), sampleAttempt(0))
	repo.get = func(context.Context, int64) (*model.Attempt, error) {
		return nil, apierr.New(apierr.KindAuthRequired, "not yours")
	}
	svc := NewReviewService(repo, zerolog.Nop())

	_, err := svc.Load(context.Background(), 101, 5, nil)
	assert.ErrorIs(t, err, apierr.ErrAuthRequired)
}

func TestReviewService_PercentFallsBackToMaxPoint(t *testing.T) {
	test := sampleTest(60)
	test.TotalPoint = 0
	repo := newFakeRepo(test, sampleAttempt(0))
	repo.get = func(context.Context, int64) (*model.Attempt, error) {
		a := finalizedAttempt()
		a.AttemptPoint = 10
		a.MaxPoint = 20
		return a, nil
	}
	svc := NewReviewService(repo, zerolog.Nop())

	var out emitted
	review, err := svc.Load(context.Background(), 101, 5, out.emit)
	require.NoError(t, err)

	require.Len(t, out.reviews, 2)
	assert.Equal(t, 50, out.reviews[0].Percent)
	assert.Equal(t, 50, out.reviews[1].Percent)
	assert.Equal(t, 50, review.Percent)
}
