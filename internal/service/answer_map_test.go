package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanhoc/mocktest/internal/model"
)

func TestReduceAnswers_SnapshotRebuilds(t *testing.T) {
	prev := AnswerMap{9: {AnswerText: "stale"}}
	snap := &model.Attempt{MockAnswers: []model.Answer{
		{MockQuestionID: 1, MockOptionID: model.Int64Ptr(11)},
		{MockQuestionID: 2, AnswerText: model.StringPtr("essay")},
	}}

	next := ReduceAnswers(prev, FromSnapshot(snap))

	require.Len(t, next, 2)
	assert.Equal(t, int64(11), *next[1].OptionID)
	assert.Equal(t, "essay", next[2].AnswerText)
	assert.Contains(t, prev, int64(9))
}

func TestReduceAnswers_PatchOverwritesWithoutMutatingPrev(t *testing.T) {
	prev := ReduceAnswers(nil, FromAnswer(model.Answer{MockQuestionID: 1, MockOptionID: model.Int64Ptr(11)}))

	next := ReduceAnswers(prev, FromAnswer(model.Answer{MockQuestionID: 1, MockOptionID: model.Int64Ptr(12)}))

	assert.Equal(t, int64(12), *next[1].OptionID)
	assert.Equal(t, int64(11), *prev[1].OptionID)
}

func TestAnswerMap_CloneCopiesOptionPointers(t *testing.T) {
	m := AnswerMap{1: {OptionID: model.Int64Ptr(11)}}
	c := m.Clone()
	*c[1].OptionID = 99

	assert.Equal(t, int64(11), *m[1].OptionID)
}
