// internal/app/feedback_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"mentor_feedback_bot/internal/domain/feedback"
	"mentor_feedback_bot/internal/domain/meeting"
	domainTelegram "mentor_feedback_bot/internal/domain/telegram"
	idb "mentor_feedback_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3" // For telebot.ReplyMarkup and telebot.SendOptions
)

// FeedbackService drives the questionnaire lifecycle: discovering completed
// meetings, re-prompting silent chats and advancing questionnaires from
// inbound button presses. All three entry points run concurrently against the
// same repository; consistency comes from the repository's conditional
// transitions, not from locks in this layer.
type FeedbackService interface {
	// RunDiscoveryCycle queries the record store for newly completed meetings
	// and creates pending questionnaires for the unprocessed ones.
	RunDiscoveryCycle(ctx context.Context) error
	// RunReminderCycle re-issues the initial prompt for every still-pending
	// questionnaire, superseding the previous prompt message.
	RunReminderCycle(ctx context.Context) error
	// ProcessStartAction moves the chat's oldest pending questionnaire to
	// in_progress and shows question 1.
	ProcessStartAction(ctx context.Context, chatID string, messageID int) error
	// ProcessAnswerAction records a score for the cited question, advancing to
	// the next question or completing the questionnaire.
	ProcessAnswerAction(ctx context.Context, chatID, meetingID string, question, score, messageID int) error
}

// FeedbackServiceImpl implements the FeedbackService interface.
type FeedbackServiceImpl struct {
	repo            feedback.Repository
	recordStore     meeting.RecordStore
	telegramClient  domainTelegram.Client
	logger          *logrus.Entry
	discoveryWindow time.Duration
	errorChatID     string // operator chat for failure reports, "" to disable
}

func NewFeedbackServiceImpl(
	repo feedback.Repository,
	recordStore meeting.RecordStore,
	telegramClient domainTelegram.Client,
	logger *logrus.Entry,
	discoveryWindow time.Duration,
	errorChatID string,
) *FeedbackServiceImpl {
	return &FeedbackServiceImpl{
		repo:            repo,
		recordStore:     recordStore,
		telegramClient:  telegramClient,
		logger:          logger,
		discoveryWindow: discoveryWindow,
		errorChatID:     errorChatID,
	}
}

// RunDiscoveryCycle processes one discovery pass. Failures of a single meeting
// are logged and do not abort the rest of the batch.
func (s *FeedbackServiceImpl) RunDiscoveryCycle(ctx context.Context) error {
	meetings, err := s.recordStore.QueryCompleted(ctx, s.discoveryWindow)
	if err != nil {
		s.notifyOperator(fmt.Sprintf("Ошибка запроса завершённых встреч: %v", err))
		return fmt.Errorf("failed to query completed meetings: %w", err)
	}
	s.logger.WithField("meetings_count", len(meetings)).Info("Discovery cycle: fetched completed meetings")

	for _, m := range meetings {
		if err := s.processMeeting(ctx, m); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"meeting_id": m.ID,
				"chat_id":    m.ChatID,
			}).Error("Failed to process discovered meeting")
		}
	}
	return nil
}

func (s *FeedbackServiceImpl) processMeeting(ctx context.Context, m *meeting.Meeting) error {
	processed, err := s.repo.IsMeetingProcessed(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to check processed-meeting set: %w", err)
	}
	if processed {
		return nil
	}

	q := feedback.NewQuestionnaire(m.ChatID, m.ID, m.Name, m.StudentID)
	err = s.repo.Create(ctx, q)
	if err != nil && err != idb.ErrDuplicateQuestionnaire {
		return fmt.Errorf("failed to create questionnaire: %w", err)
	}
	// An existing row means a previous cycle crashed between sending and
	// marking processed. Re-sending the prompt here is the accepted
	// at-least-once outcome; silent loss would be the alternative.

	messageID, err := s.sendInitialPrompt(m.ChatID, m.Name, m.MentorName)
	if err != nil {
		return fmt.Errorf("failed to send initial prompt: %w", err)
	}
	if err := s.repo.UpdateLastMessageID(ctx, m.ChatID, m.ID, messageID); err != nil {
		return fmt.Errorf("failed to persist prompt message reference: %w", err)
	}

	// The meeting joins the processed set only after the send succeeded, so a
	// crash before this point causes rediscovery, never a surveyed-zero-times
	// meeting.
	if err := s.repo.MarkMeetingProcessed(ctx, m.ID); err != nil {
		return fmt.Errorf("failed to mark meeting processed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"meeting_id": m.ID,
		"chat_id":    m.ChatID,
	}).Info("Questionnaire created and initial prompt sent")
	return nil
}

// RunReminderCycle re-prompts every pending questionnaire. There is no cap on
// reminder count; a questionnaire stays on the list until the user starts it.
func (s *FeedbackServiceImpl) RunReminderCycle(ctx context.Context) error {
	pending, err := s.repo.ListByStatus(ctx, feedback.StatusPending)
	if err != nil {
		s.notifyOperator(fmt.Sprintf("Ошибка выборки ожидающих анкет: %v", err))
		return fmt.Errorf("failed to list pending questionnaires: %w", err)
	}
	s.logger.WithField("pending_count", len(pending)).Info("Reminder cycle: pending questionnaires found")

	for _, q := range pending {
		if err := s.remind(ctx, q); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"meeting_id": q.MeetingID,
				"chat_id":    q.ChatID,
			}).Error("Failed to re-prompt pending questionnaire")
		}
	}
	return nil
}

func (s *FeedbackServiceImpl) remind(ctx context.Context, q *feedback.Questionnaire) error {
	if q.LastMessageID != 0 {
		// Best effort: the superseded prompt may already be gone.
		if err := s.telegramClient.DeleteMessage(q.ChatID, q.LastMessageID); err != nil {
			s.logger.WithError(err).WithField("message_id", q.LastMessageID).
				Debug("Could not delete superseded prompt message")
		}
	}

	mentorName, err := s.recordStore.MentorName(ctx, q.MeetingID)
	if err != nil {
		return fmt.Errorf("failed to fetch mentor name: %w", err)
	}

	messageID, err := s.sendInitialPrompt(q.ChatID, q.MeetingName, mentorName)
	if err != nil {
		return fmt.Errorf("failed to send reminder prompt: %w", err)
	}
	if err := s.repo.UpdateLastMessageID(ctx, q.ChatID, q.MeetingID, messageID); err != nil {
		return fmt.Errorf("failed to persist reminder message reference: %w", err)
	}
	return nil
}

func (s *FeedbackServiceImpl) ProcessStartAction(ctx context.Context, chatID string, messageID int) error {
	q, err := s.repo.OldestPendingByChat(ctx, chatID)
	if err != nil {
		if err == idb.ErrQuestionnaireNotFound {
			s.logger.WithField("chat_id", chatID).Info("Start action without a pending questionnaire. Ignoring.")
			return nil
		}
		return fmt.Errorf("failed to find pending questionnaire for chat %s: %w", chatID, err)
	}

	fromStatus, fromQuestion := q.Status, q.CurrentQuestion
	if err := q.Start(); err != nil {
		return nil // Stale press; the row is no longer pending.
	}
	if err := s.repo.SaveTransition(ctx, q, fromStatus, fromQuestion); err != nil {
		if err == idb.ErrStaleQuestionnaire {
			s.logger.WithField("chat_id", chatID).Debug("Concurrent start action lost the transition. Ignoring.")
			return nil
		}
		return fmt.Errorf("failed to persist start transition: %w", err)
	}

	return s.showQuestion(q, messageID)
}

func (s *FeedbackServiceImpl) ProcessAnswerAction(ctx context.Context, chatID, meetingID string, question, score, messageID int) error {
	q, err := s.repo.GetByChatAndMeeting(ctx, chatID, meetingID)
	if err != nil {
		if err == idb.ErrQuestionnaireNotFound {
			s.logger.WithFields(logrus.Fields{
				"chat_id":    chatID,
				"meeting_id": meetingID,
			}).Info("Answer action for unknown questionnaire. Ignoring.")
			return nil
		}
		return fmt.Errorf("failed to get questionnaire for answer: %w", err)
	}

	fromStatus, fromQuestion := q.Status, q.CurrentQuestion
	if err := q.Answer(question, score); err != nil {
		// Replayed or edited-away button press; no state change, no reply.
		s.logger.WithFields(logrus.Fields{
			"chat_id":          chatID,
			"meeting_id":       meetingID,
			"cited_question":   question,
			"current_question": fromQuestion,
		}).Debug("Ignoring stale or invalid answer action")
		return nil
	}
	if err := s.repo.SaveTransition(ctx, q, fromStatus, fromQuestion); err != nil {
		if err == idb.ErrStaleQuestionnaire {
			s.logger.WithField("chat_id", chatID).Debug("Concurrent answer action lost the transition. Ignoring.")
			return nil
		}
		return fmt.Errorf("failed to persist answer transition: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"meeting_id": meetingID,
		"question":   question,
		"score":      score,
	}).Info("Answer accepted")

	if q.Completed() {
		return s.finishQuestionnaire(ctx, q, messageID)
	}
	return s.showQuestion(q, messageID)
}

// finishQuestionnaire runs the closing side effects. The local row is already
// completed; write-back failures are logged and reported, never retried or
// rolled back.
func (s *FeedbackServiceImpl) finishQuestionnaire(ctx context.Context, q *feedback.Questionnaire, messageID int) error {
	summary, err := s.recordStore.Summary(ctx, q.MeetingID)
	if err != nil {
		s.logger.WithError(err).WithField("meeting_id", q.MeetingID).Error("Failed to fetch meeting summary for closing message")
		summary = ""
	}
	closingText := fmt.Sprintf("Спасибо за обратную связь! \nSummary встречи:\n%s", summary)
	if err := s.telegramClient.EditMessage(q.ChatID, messageID, closingText, nil); err != nil {
		s.logger.WithError(err).WithField("chat_id", q.ChatID).Error("Failed to edit message to closing text")
	}

	record := &meeting.FeedbackRecord{
		MeetingID:   q.MeetingID,
		MeetingName: q.MeetingName,
		StudentID:   q.StudentID,
		ChatID:      q.ChatID,
		Scores:      q.Answers,
		FilledAt:    time.Now(),
	}
	if err := s.recordStore.CreateFeedback(ctx, record); err != nil {
		s.logger.WithError(err).WithField("meeting_id", q.MeetingID).Error("Failed to write feedback record to the record store")
		s.notifyOperator(fmt.Sprintf("Не удалось сохранить фидбек по встрече %s: %v", q.MeetingName, err))
		return nil
	}
	if err := s.recordStore.MarkFeedbackReceived(ctx, q.MeetingID); err != nil {
		s.logger.WithError(err).WithField("meeting_id", q.MeetingID).Error("Failed to set feedback-received flag on the meeting")
		s.notifyOperator(fmt.Sprintf("Не удалось отметить встречу %s как обработанную: %v", q.MeetingName, err))
		return nil
	}

	s.logger.WithField("meeting_id", q.MeetingID).Info("Questionnaire completed and feedback written back")
	return nil
}

func (s *FeedbackServiceImpl) sendInitialPrompt(chatID, meetingName, mentorName string) (int, error) {
	messageText := fmt.Sprintf("Пожалуйста, оставьте обратную связь по встрече:\n<b>%s</b> с ментором %s.", meetingName, mentorName)

	// Raw inline buttons keep the callback payload exactly as encoded.
	startButton := telebot.InlineButton{
		Text: "Начать",
		Data: domainTelegram.StartCallbackData(chatID, meetingName),
	}
	replyMarkup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{startButton}}}

	return s.telegramClient.SendMessage(chatID, messageText, &telebot.SendOptions{
		ReplyMarkup: replyMarkup,
		ParseMode:   telebot.ModeHTML,
	})
}

// showQuestion edits the questionnaire's live message in place to the current
// question with its five score buttons.
func (s *FeedbackServiceImpl) showQuestion(q *feedback.Questionnaire, messageID int) error {
	questionText := feedback.QuestionText(q.CurrentQuestion)

	row := make([]telebot.InlineButton, 0, 5)
	for score := 1; score <= 5; score++ {
		row = append(row, telebot.InlineButton{
			Text: fmt.Sprintf("%d ⭐️", score),
			Data: domainTelegram.AnswerCallbackData(q.ChatID, q.MeetingID, q.CurrentQuestion, score),
		})
	}
	replyMarkup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{row}}

	err := s.telegramClient.EditMessage(q.ChatID, messageID, questionText, &telebot.SendOptions{ReplyMarkup: replyMarkup})
	if err != nil {
		return fmt.Errorf("failed to edit message to question %d: %w", q.CurrentQuestion, err)
	}
	return nil
}

// notifyOperator mirrors a failure to the configured operator chat. Failures
// never surface as error text in respondent chats.
func (s *FeedbackServiceImpl) notifyOperator(text string) {
	if s.errorChatID == "" {
		return
	}
	if _, err := s.telegramClient.SendMessage(s.errorChatID, text, nil); err != nil {
		s.logger.WithError(err).Warn("Failed to deliver failure report to operator chat")
	}
}
