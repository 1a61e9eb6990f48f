// Package view renders session state and attempt reviews as plain text.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/service"
)

// FormatTimer renders seconds as mm:ss, or h:mm:ss from one hour up.
func FormatTimer(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Answered reports whether question q has a confirmed answer.
func Answered(v service.View, q model.MockQuestion) bool {
	ans, ok := v.Answers[q.ID]
	if !ok {
		return false
	}
	if q.IsChoice() {
		return ans.OptionID != nil
	}
	return strings.TrimSpace(ans.AnswerText) != ""
}

// ControlPanel prints the timer, progress and finish state.
func ControlPanel(w io.Writer, v service.View) {
	if v.Test == nil {
		fmt.Fprintf(w, "[%s]\n", v.Phase)
		writeBanner(w, v.Banner)
		return
	}

	answered := 0
	for _, q := range v.Test.Questions {
		if Answered(v, q) {
			answered++
		}
	}

	state := "Finish: f"
	switch {
	case v.ReadOnly && v.Phase == service.PhaseCompleted:
		state = "Submitted"
	case v.Finishing:
		state = "Submitting..."
	}

	fmt.Fprintf(w, "%s | time left %s | answered %d/%d | %s\n",
		v.Test.Name, FormatTimer(v.TimeLeft), answered, len(v.Test.Questions), state)
	writeBanner(w, v.Banner)
}

// QuestionList prints one cell per question: the current one in brackets,
// answered ones marked with an asterisk.
func QuestionList(w io.Writer, v service.View) {
	if v.Test == nil {
		return
	}
	cells := make([]string, len(v.Test.Questions))
	for i, q := range v.Test.Questions {
		cell := fmt.Sprintf("%d", i+1)
		if Answered(v, q) {
			cell += "*"
		}
		if i == v.Current {
			cell = "[" + cell + "]"
		}
		cells[i] = cell
	}
	fmt.Fprintln(w, strings.Join(cells, " "))
}

// Question prints the visible question with its options or essay text.
func Question(w io.Writer, v service.View) {
	q, ok := v.CurrentQuestion()
	if !ok {
		fmt.Fprintln(w, "No question to show.")
		return
	}

	fmt.Fprintf(w, "Question %d of %d (%d pt)\n", v.Current+1, len(v.Test.Questions), q.Point)
	fmt.Fprintln(w, q.Question)

	if !q.IsChoice() {
		text := v.EssayText(q.ID)
		if text == "" {
			text = "(no answer yet)"
		}
		marker := ""
		if _, unsaved := v.EssayBuffers[q.ID]; unsaved {
			marker = " (unsaved)"
		}
		fmt.Fprintf(w, "Your answer%s:\n  %s\n", marker, text)
		return
	}

	chosen := v.Answers[q.ID].OptionID
	for i, o := range q.Options {
		mark := " "
		if chosen != nil && *chosen == o.ID {
			mark = "x"
		}
		fmt.Fprintf(w, "  (%s) %c. %s\n", mark, 'a'+rune(i%26), o.Name)
	}
}

// Screen prints the full in-progress screen.
func Screen(w io.Writer, v service.View) {
	ControlPanel(w, v)
	QuestionList(w, v)
	fmt.Fprintln(w)
	Question(w, v)
}

// Review prints the result page: the summary, then one card per question
// once the test is loaded.
func Review(w io.Writer, r *service.Review) {
	a := r.Attempt
	name := fmt.Sprintf("Attempt #%d", a.ID)
	if r.Test != nil {
		name = r.Test.Name
	}
	total := r.TotalPoint
	if total <= 0 {
		total = a.MaxPoint
	}

	fmt.Fprintf(w, "%s: %d/%d points (%d%%)\n", name, a.AttemptPoint, total, r.Percent)
	if a.EndTime != nil {
		fmt.Fprintf(w, "Duration: %s\n", FormatTimer(int(a.EndTime.Sub(a.StartTime).Seconds())))
	}

	switch {
	case r.QuestionsErr != nil:
		fmt.Fprintln(w, "Question details are unavailable.")
		return
	case r.Loading():
		fmt.Fprintln(w, "Loading questions...")
		return
	}

	for i, rq := range r.Questions {
		fmt.Fprintln(w)
		ResultCard(w, i+1, rq)
	}
}

// ReviewStages returns an emit callback for ReviewService.Load that prints
// the summary as soon as it arrives and the full review after it. Buffered
// writers are flushed after each stage.
func ReviewStages(w io.Writer) func(*service.Review) {
	return func(r *service.Review) {
		if !r.Loading() {
			fmt.Fprintln(w)
		}
		Review(w, r)
		if f, ok := w.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
}

// ResultCard prints one reviewed question.
func ResultCard(w io.Writer, number int, rq service.ReviewQuestion) {
	fmt.Fprintf(w, "%d. %s [%s]\n", number, rq.Question.Question, verdictLabel(rq.Verdict))

	if !rq.Question.IsChoice() {
		if rq.AnswerText != "" {
			fmt.Fprintf(w, "   Your answer: %s\n", rq.AnswerText)
		}
		if rq.Verdict == service.VerdictPending {
			fmt.Fprintln(w, "   Pending teacher grading")
		}
		return
	}

	if rq.Chosen != nil {
		fmt.Fprintf(w, "   Your answer: %s\n", rq.Chosen.Name)
	}
	if rq.Correct != nil && rq.Verdict != service.VerdictCorrect {
		fmt.Fprintf(w, "   Correct answer: %s\n", rq.Correct.Name)
	}
	fmt.Fprintf(w, "   %d/%d pt\n", rq.PointsAwarded, rq.Question.Point)
}

func verdictLabel(v service.Verdict) string {
	switch v {
	case service.VerdictCorrect:
		return "correct"
	case service.VerdictIncorrect:
		return "incorrect"
	case service.VerdictPending:
		return "pending"
	default:
		return "unanswered"
	}
}

func writeBanner(w io.Writer, b *service.Banner) {
	if b == nil {
		return
	}
	hint := "d to dismiss"
	if b.Blocking || b.Kind == service.BannerFinalize {
		hint = "r to retry"
	}
	fmt.Fprintf(w, "! %s (%s)\n", b.Message, hint)
}
