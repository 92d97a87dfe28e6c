// internal/infra/telegram/feedback_handlers.go
package telegram

import (
	"context"
	"fmt"
	"strings"

	"mentor_feedback_bot/internal/app"
	domainTelegram "mentor_feedback_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterFeedbackHandlers wires the inbound long-poll events into the
// feedback service: button presses advancing questionnaires, plus the
// /chat_id diagnostic used when setting up a new chat.
func RegisterFeedbackHandlers(ctx context.Context, b *telebot.Bot, feedbackService app.FeedbackService, baseLogger *logrus.Entry) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimPrefix(strings.TrimSpace(c.Callback().Data), "\f")

		action, err := domainTelegram.ParseCallbackData(data)
		if err != nil {
			// Malformed or foreign payload: no state change, minimal ack.
			baseLogger.WithField("data", data).Debug("Ignoring unrecognized callback payload")
			return c.Respond()
		}

		var messageID int
		if c.Callback().Message != nil {
			messageID = c.Callback().Message.ID
		}

		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"action":  action.Action,
			"chat_id": action.ChatID,
		})

		switch action.Action {
		case domainTelegram.ActionStart:
			if err := feedbackService.ProcessStartAction(ctx, action.ChatID, messageID); err != nil {
				handlerLogger.WithError(err).Error("Failed to process start action")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
		case domainTelegram.ActionAnswer:
			if err := feedbackService.ProcessAnswerAction(ctx, action.ChatID, action.MeetingID, action.Question, action.Score, messageID); err != nil {
				handlerLogger.WithError(err).WithField("meeting_id", action.MeetingID).Error("Failed to process answer action")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
		}
		return c.Respond()
	})

	b.Handle("/chat_id", func(c telebot.Context) error {
		baseLogger.WithField("chat_id", c.Chat().ID).Info("Processing /chat_id command")
		return c.Send(fmt.Sprintf("ID чата: %d", c.Chat().ID))
	})
}
