// internal/infra/database/postgres_feedback_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"mentor_feedback_bot/internal/domain/feedback"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to the feedback repository
var ErrQuestionnaireNotFound = fmt.Errorf("questionnaire not found")
var ErrDuplicateQuestionnaire = fmt.Errorf("duplicate questionnaire (chat_id, meeting_id)")

// ErrStaleQuestionnaire is returned when a conditional state advance matched
// no row: another loop moved the questionnaire first, or the action cited a
// state the row is no longer in. Callers treat it as a no-op.
var ErrStaleQuestionnaire = fmt.Errorf("questionnaire state changed concurrently, transition is stale")

type PostgresFeedbackRepository struct {
	db *sql.DB
}

func NewPostgresFeedbackRepository(db *sql.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

// --- Questionnaire methods ---

func (r *PostgresFeedbackRepository) Create(ctx context.Context, q *feedback.Questionnaire) error {
	answers, err := marshalAnswers(q.Answers)
	if err != nil {
		return err
	}
	query := `INSERT INTO questionnaires (chat_id, meeting_id, meeting_name, student_id, status, current_question, answers, last_message_id)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at`
	err = r.db.QueryRowContext(ctx, query,
		q.ChatID, q.MeetingID, q.MeetingName, q.StudentID,
		q.Status, q.CurrentQuestion, answers, nullMessageID(q.LastMessageID),
	).Scan(&q.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "questionnaires_pkey") { // Check for unique constraint violation
			return ErrDuplicateQuestionnaire
		}
		return fmt.Errorf("error creating questionnaire: %w", err)
	}
	return nil
}

const questionnaireColumns = `chat_id, meeting_id, meeting_name, student_id, status, current_question, answers, last_message_id, created_at`

func (r *PostgresFeedbackRepository) GetByChatAndMeeting(ctx context.Context, chatID, meetingID string) (*feedback.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + ` FROM questionnaires WHERE chat_id = $1 AND meeting_id = $2`
	q, err := scanQuestionnaire(r.db.QueryRowContext(ctx, query, chatID, meetingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, fmt.Errorf("error getting questionnaire by chat and meeting: %w", err)
	}
	return q, nil
}

func (r *PostgresFeedbackRepository) OldestPendingByChat(ctx context.Context, chatID string) (*feedback.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + ` FROM questionnaires
               WHERE chat_id = $1 AND status = $2
               ORDER BY created_at ASC LIMIT 1`
	q, err := scanQuestionnaire(r.db.QueryRowContext(ctx, query, chatID, feedback.StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, fmt.Errorf("error getting oldest pending questionnaire for chat: %w", err)
	}
	return q, nil
}

func (r *PostgresFeedbackRepository) ListByStatus(ctx context.Context, status feedback.Status) ([]*feedback.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + ` FROM questionnaires
               WHERE status = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("error querying questionnaires by status: %w", err)
	}
	defer rows.Close()

	questionnaires := make([]*feedback.Questionnaire, 0)
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning questionnaire row: %w", err)
		}
		questionnaires = append(questionnaires, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questionnaire rows: %w", err)
	}
	return questionnaires, nil
}

func (r *PostgresFeedbackRepository) UpdateLastMessageID(ctx context.Context, chatID, meetingID string, messageID int) error {
	query := `UPDATE questionnaires SET last_message_id = $1 WHERE chat_id = $2 AND meeting_id = $3`
	res, err := r.db.ExecContext(ctx, query, nullMessageID(messageID), chatID, meetingID)
	if err != nil {
		return fmt.Errorf("error updating questionnaire message reference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated rows: %w", err)
	}
	if affected == 0 {
		return ErrQuestionnaireNotFound
	}
	return nil
}

// SaveTransition advances a questionnaire only if the row still holds the
// state the transition was computed from. A zero-row update means another
// loop won the advance; the stale caller must not apply any side effects.
func (r *PostgresFeedbackRepository) SaveTransition(ctx context.Context, q *feedback.Questionnaire, fromStatus feedback.Status, fromQuestion int) error {
	answers, err := marshalAnswers(q.Answers)
	if err != nil {
		return err
	}
	query := `UPDATE questionnaires
               SET status = $1, current_question = $2, answers = $3
               WHERE chat_id = $4 AND meeting_id = $5 AND status = $6 AND current_question = $7`
	res, err := r.db.ExecContext(ctx, query,
		q.Status, q.CurrentQuestion, answers,
		q.ChatID, q.MeetingID, fromStatus, fromQuestion,
	)
	if err != nil {
		return fmt.Errorf("error saving questionnaire transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated rows: %w", err)
	}
	if affected == 0 {
		return ErrStaleQuestionnaire
	}
	return nil
}

// --- Processed-meeting set methods ---

func (r *PostgresFeedbackRepository) IsMeetingProcessed(ctx context.Context, meetingID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM processed_meetings WHERE meeting_id = $1`, meetingID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error checking processed meeting: %w", err)
	}
	return true, nil
}

func (r *PostgresFeedbackRepository) MarkMeetingProcessed(ctx context.Context, meetingID string) error {
	// Membership is permanent; re-marking after a crash window is harmless.
	query := `INSERT INTO processed_meetings (meeting_id) VALUES ($1) ON CONFLICT (meeting_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, meetingID); err != nil {
		return fmt.Errorf("error marking meeting processed: %w", err)
	}
	return nil
}

// --- Scan helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestionnaire(row rowScanner) (*feedback.Questionnaire, error) {
	q := feedback.Questionnaire{}
	var answers []byte
	var lastMessageID sql.NullInt64
	err := row.Scan(
		&q.ChatID, &q.MeetingID, &q.MeetingName, &q.StudentID,
		&q.Status, &q.CurrentQuestion, &answers, &lastMessageID, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &q.Answers); err != nil {
		return nil, fmt.Errorf("error decoding questionnaire answers: %w", err)
	}
	if lastMessageID.Valid {
		q.LastMessageID = int(lastMessageID.Int64)
	}
	return &q, nil
}

func marshalAnswers(answers map[int]int) ([]byte, error) {
	if answers == nil {
		answers = map[int]int{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("error encoding questionnaire answers: %w", err)
	}
	return data, nil
}

func nullMessageID(id int) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
