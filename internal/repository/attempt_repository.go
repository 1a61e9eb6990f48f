package repository

import (
	"context"
	"fmt"

	"github.com/vanhoc/mocktest/internal/httpclient"
	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/validator"
)

// AttemptRepository performs the mock-test REST operations.
type AttemptRepository struct {
	client *httpclient.Client
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(client *httpclient.Client) *AttemptRepository {
	return &AttemptRepository{client: client}
}

// GetTestDetail fetches a test with its questions and options. Cancelling
// ctx aborts the request.
func (r *AttemptRepository) GetTestDetail(ctx context.Context, testID int64) (*model.MockTest, error) {
	var t model.MockTest
	if err := r.client.Get(ctx, fmt.Sprintf("/mock-tests/%d", testID), &t); err != nil {
		return nil, fmt.Errorf("get test %d: %w", testID, err)
	}
	return &t, nil
}

// StartAttempt creates an attempt or returns the in-progress one.
func (r *AttemptRepository) StartAttempt(ctx context.Context, testID int64) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.client.Post(ctx, fmt.Sprintf("/mock-tests/%d/attempts/start", testID), struct{}{}, &a); err != nil {
		return nil, fmt.Errorf("start attempt for test %d: %w", testID, err)
	}
	return &a, nil
}

// SubmitAnswer records one answer. The request is validated before any
// network I/O.
func (r *AttemptRepository) SubmitAnswer(ctx context.Context, attemptID int64, req model.SubmitAnswerRequest) (*model.SubmitAnswerResult, error) {
	req.MockAttemptID = attemptID
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var res model.SubmitAnswerResult
	if err := r.client.Post(ctx, fmt.Sprintf("/mock-attempts/%d/answers", attemptID), req, &res); err != nil {
		return nil, fmt.Errorf("submit answer for question %d: %w", req.MockQuestionID, err)
	}
	return &res, nil
}

// FinalizeAttempt grades and closes the attempt. Calling it on a completed
// attempt returns the same final result.
func (r *AttemptRepository) FinalizeAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.client.Post(ctx, fmt.Sprintf("/mock-attempts/%d/grade", attemptID), struct{}{}, &a); err != nil {
		return nil, fmt.Errorf("finalize attempt %d: %w", attemptID, err)
	}
	return &a, nil
}

// GetAttempt fetches an attempt with its answers.
func (r *AttemptRepository) GetAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.client.Get(ctx, fmt.Sprintf("/mock-attempts/%d", attemptID), &a); err != nil {
		return nil, fmt.Errorf("get attempt %d: %w", attemptID, err)
	}
	return &a, nil
}
