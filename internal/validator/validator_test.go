package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/model"
)

func TestStruct_SubmitAnswer(t *testing.T) {
	tests := []struct {
		name    string
		req     model.SubmitAnswerRequest
		wantErr bool
		field   string
	}{
		{
			name: "choice answer",
			req:  model.SubmitAnswerRequest{AccountID: 1, MockQuestionID: 2, MockAttemptID: 3, MockOptionID: model.Int64Ptr(9)},
		},
		{
			name: "essay answer",
			req:  model.SubmitAnswerRequest{AccountID: 1, MockQuestionID: 2, MockAttemptID: 3, AnswerText: model.StringPtr("Truyện Kiều")},
		},
		{
			name:    "neither option nor text",
			req:     model.SubmitAnswerRequest{AccountID: 1, MockQuestionID: 2, MockAttemptID: 3},
			wantErr: true,
			field:   "answerText",
		},
		{
			name:    "blank essay text",
			req:     model.SubmitAnswerRequest{AccountID: 1, MockQuestionID: 2, MockAttemptID: 3, AnswerText: model.StringPtr("   ")},
			wantErr: true,
			field:   "answerText",
		},
		{
			name:    "missing question",
			req:     model.SubmitAnswerRequest{AccountID: 1, MockAttemptID: 3, MockOptionID: model.Int64Ptr(9)},
			wantErr: true,
			field:   "mockQuestionId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apierr.ErrValidation))

			var apiErr *apierr.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Contains(t, apiErr.Fields, tt.field)
		})
	}
}

func TestTranslateErrors_NonValidation(t *testing.T) {
	fields := TranslateErrors(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"detail": "unexpected EOF"}, fields)
}
