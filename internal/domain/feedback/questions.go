// internal/domain/feedback/questions.go
package feedback

// TotalQuestions is the fixed length of the rating questionnaire.
const TotalQuestions = 5

// The ordered rating prompts, 1-based from the caller's point of view.
// Configuration, not persisted state.
var questions = [TotalQuestions]string{
	"Насколько продуктивно была проведена встреча со стороны ментора?",
	"Насколько быстро ментор отвечает на ваши вопросы?",
	"Насколько вам понятен план действий до следующей встречи?",
	"Оцените уровень экспертизы ментора по основной теме встречи.",
	"Насколько быстро и эффективно ваш координатор помогает вам?",
}

// QuestionText returns the prompt for a 1-based question index, or the empty
// string when the index is out of range.
func QuestionText(n int) string {
	if n < 1 || n > TotalQuestions {
		return ""
	}
	return questions[n-1]
}
