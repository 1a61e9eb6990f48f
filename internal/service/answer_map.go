package service

import "github.com/vanhoc/mocktest/internal/model"

// AnswerEntry is the confirmed answer of one question.
type AnswerEntry struct {
	OptionID   *int64
	AnswerText string
}

// AnswerMap indexes confirmed answers by question id.
type AnswerMap map[int64]AnswerEntry

// AnswerUpdate is either a full attempt snapshot or a single answer.
type AnswerUpdate struct {
	snapshot *model.Attempt
	answer   *model.Answer
}

// FromSnapshot rebuilds the map from a full attempt.
func FromSnapshot(a *model.Attempt) AnswerUpdate {
	return AnswerUpdate{snapshot: a}
}

// FromAnswer patches one question.
func FromAnswer(ans model.Answer) AnswerUpdate {
	return AnswerUpdate{answer: &ans}
}

// ReduceAnswers returns the next AnswerMap. prev is never modified.
func ReduceAnswers(prev AnswerMap, u AnswerUpdate) AnswerMap {
	if u.snapshot != nil {
		next := make(AnswerMap, len(u.snapshot.MockAnswers))
		for _, ans := range u.snapshot.MockAnswers {
			next[ans.MockQuestionID] = entryOf(ans)
		}
		return next
	}

	next := make(AnswerMap, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	if u.answer != nil {
		next[u.answer.MockQuestionID] = entryOf(*u.answer)
	}
	return next
}

// Clone copies the map, including option pointers.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		if v.OptionID != nil {
			id := *v.OptionID
			v.OptionID = &id
		}
		out[k] = v
	}
	return out
}

func entryOf(ans model.Answer) AnswerEntry {
	e := AnswerEntry{}
	if ans.MockOptionID != nil {
		id := *ans.MockOptionID
		e.OptionID = &id
	}
	if ans.AnswerText != nil {
		e.AnswerText = *ans.AnswerText
	}
	return e
}
