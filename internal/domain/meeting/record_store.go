package meeting

import (
	"context"
	"time"
)

// RecordStore defines the operations the bot needs from the external system of
// record. This decouples the application logic from the concrete API client.
type RecordStore interface {
	// QueryCompleted returns meetings finished within the trailing window that
	// do not have their feedback-received flag set yet. Individual records
	// whose shape cannot be validated are skipped, not fatal for the query.
	QueryCompleted(ctx context.Context, window time.Duration) ([]*Meeting, error)
	// MentorName re-reads the mentor display name for a meeting.
	MentorName(ctx context.Context, meetingID string) (string, error)
	// Summary returns the meeting's free-text summary, "" when the record has
	// none.
	Summary(ctx context.Context, meetingID string) (string, error)
	CreateFeedback(ctx context.Context, rec *FeedbackRecord) error
	// MarkFeedbackReceived sets the meeting's feedback-received flag so the
	// discovery query stops returning it.
	MarkFeedbackReceived(ctx context.Context, meetingID string) error
}
