package meeting

import (
	"time"
)

// Meeting is an immutable snapshot of a completed mentoring session, taken at
// discovery time from the record store.
type Meeting struct {
	ID         string // record store page id
	Name       string
	MentorName string
	StudentID  string // record store page id of the student
	ChatID     string // numeric Telegram chat id, kept as text
	Date       time.Time
}

// FeedbackRecord is the aggregated questionnaire result written back to the
// record store once a questionnaire completes.
type FeedbackRecord struct {
	MeetingID   string
	MeetingName string
	StudentID   string
	ChatID      string
	Scores      map[int]int // question index 1..5 -> score 1..5
	FilledAt    time.Time
}
