// internal/domain/feedback/questionnaire.go
package feedback

import (
	"fmt"
	"time"
)

// Errors returned by the pure transition methods. Callers treat
// ErrStaleTransition as a no-op: the action referenced a state the
// questionnaire is no longer in (replayed button press, edited-away message).
var ErrStaleTransition = fmt.Errorf("action does not apply to the questionnaire's current state")
var ErrInvalidScore = fmt.Errorf("score must be between 1 and 5")

// Questionnaire tracks one feedback workflow for a (chat, meeting) pair.
// Corresponds to a row of the 'questionnaires' table.
type Questionnaire struct {
	ChatID          string
	MeetingID       string
	MeetingName     string
	StudentID       string
	Status          Status
	CurrentQuestion int         // 0 until started, then the question awaiting an answer
	Answers         map[int]int // question index -> score 1..5
	LastMessageID   int         // the single live prompt message, 0 when none
	CreatedAt       time.Time
}

// NewQuestionnaire returns a pending questionnaire with no answers, as created
// by the discovery poller for a freshly completed meeting.
func NewQuestionnaire(chatID, meetingID, meetingName, studentID string) *Questionnaire {
	return &Questionnaire{
		ChatID:          chatID,
		MeetingID:       meetingID,
		MeetingName:     meetingName,
		StudentID:       studentID,
		Status:          StatusPending,
		CurrentQuestion: 0,
		Answers:         make(map[int]int, TotalQuestions),
	}
}

// Start moves a pending questionnaire to in_progress, awaiting question 1.
func (q *Questionnaire) Start() error {
	if q.Status != StatusPending {
		return ErrStaleTransition
	}
	q.Status = StatusInProgress
	q.CurrentQuestion = 1
	return nil
}

// Answer records a score for the given question. The answer is accepted only
// if it cites exactly the question the questionnaire is waiting on; anything
// else is stale. The final accepted answer completes the questionnaire.
func (q *Questionnaire) Answer(question, score int) error {
	if q.Status != StatusInProgress || question != q.CurrentQuestion {
		return ErrStaleTransition
	}
	if score < 1 || score > 5 {
		return ErrInvalidScore
	}
	if q.Answers == nil {
		q.Answers = make(map[int]int, TotalQuestions)
	}
	q.Answers[question] = score
	q.CurrentQuestion = question + 1
	if question == TotalQuestions {
		q.Status = StatusCompleted
	}
	return nil
}

// Completed reports whether the questionnaire reached its terminal state.
func (q *Questionnaire) Completed() bool {
	return q.Status == StatusCompleted
}
