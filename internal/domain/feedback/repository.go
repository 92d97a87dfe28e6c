// internal/domain/feedback/repository.go
package feedback

import (
	"context"
)

// Repository defines persistence for questionnaires and the processed-meeting
// dedup set. Every method executes as one atomic operation against the store.
type Repository interface {
	// Questionnaire methods
	Create(ctx context.Context, q *Questionnaire) error
	GetByChatAndMeeting(ctx context.Context, chatID, meetingID string) (*Questionnaire, error)
	// OldestPendingByChat resolves a start action, which carries no meeting id.
	OldestPendingByChat(ctx context.Context, chatID string) (*Questionnaire, error)
	ListByStatus(ctx context.Context, status Status) ([]*Questionnaire, error)
	UpdateLastMessageID(ctx context.Context, chatID, meetingID string, messageID int) error

	// SaveTransition persists a state advance computed in memory. The write is
	// conditional on the row still holding fromStatus and fromQuestion; a miss
	// means another loop advanced the row first and the caller must treat the
	// action as stale.
	SaveTransition(ctx context.Context, q *Questionnaire, fromStatus Status, fromQuestion int) error

	// Processed-meeting set methods. Membership is permanent.
	IsMeetingProcessed(ctx context.Context, meetingID string) (bool, error)
	MarkMeetingProcessed(ctx context.Context, meetingID string) error
}
