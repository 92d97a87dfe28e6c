package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// Inline button payloads are a positional comma-separated wire format shared
// with the questionnaire messages already in users' chats, so the encoding is
// bit-exact and versionless:
//
//	start,<chat_id>,<meeting_name>
//	answer,<chat_id>,<meeting_id>,<question_index>,<score>
//
// meeting_name is always the trailing field of a start payload and may itself
// contain commas; ParseCallbackData rejoins it rather than misparsing or
// rejecting the press. Answer payloads carry no free text and are strictly
// five fields.

const (
	ActionStart  = "start"
	ActionAnswer = "answer"
)

var ErrMalformedCallback = fmt.Errorf("malformed callback payload")

// CallbackAction is a decoded, validated button press.
type CallbackAction struct {
	Action      string
	ChatID      string
	MeetingName string // start only
	MeetingID   string // answer only
	Question    int    // answer only
	Score       int    // answer only
}

// StartCallbackData encodes the payload of the initial prompt's button.
func StartCallbackData(chatID, meetingName string) string {
	return strings.Join([]string{ActionStart, chatID, meetingName}, ",")
}

// AnswerCallbackData encodes the payload of one score button.
func AnswerCallbackData(chatID, meetingID string, question, score int) string {
	return fmt.Sprintf("%s,%s,%s,%d,%d", ActionAnswer, chatID, meetingID, question, score)
}

// ParseCallbackData validates field count and types before dispatch. Anything
// that does not decode cleanly is a malformed payload, never an index fault.
func ParseCallbackData(data string) (*CallbackAction, error) {
	parts := strings.Split(data, ",")
	switch parts[0] {
	case ActionStart:
		if len(parts) < 3 || parts[1] == "" {
			return nil, ErrMalformedCallback
		}
		return &CallbackAction{
			Action:      ActionStart,
			ChatID:      parts[1],
			MeetingName: strings.Join(parts[2:], ","),
		}, nil
	case ActionAnswer:
		if len(parts) != 5 || parts[1] == "" || parts[2] == "" {
			return nil, ErrMalformedCallback
		}
		question, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, ErrMalformedCallback
		}
		score, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, ErrMalformedCallback
		}
		return &CallbackAction{
			Action:    ActionAnswer,
			ChatID:    parts[1],
			MeetingID: parts[2],
			Question:  question,
			Score:     score,
		}, nil
	}
	return nil, ErrMalformedCallback
}
