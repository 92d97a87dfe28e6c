// internal/domain/feedback/status.go
package feedback

// Status represents the lifecycle state of a questionnaire.
// Transitions are strictly pending -> in_progress -> completed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)
