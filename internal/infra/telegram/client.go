// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"strconv"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain Client interface using the
// gopkg.in/telebot.v3 library. Chat ids arrive as the store's textual keys
// and are parsed here, at the transport boundary.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the chat and returns the message id.
// Messages default to HTML parse mode, matching the prompt templates.
func (tba *TelebotAdapter) SendMessage(chatID string, text string, options *telebot.SendOptions) (int, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return 0, err
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}
	if options.ParseMode == "" {
		options.ParseMode = telebot.ModeHTML
	}

	message, err := tba.bot.Send(&telebot.Chat{ID: id}, text, options)
	if err != nil {
		return 0, err
	}
	return message.ID, nil
}

// EditMessage rewrites an existing message's text and keyboard in place.
func (tba *TelebotAdapter) EditMessage(chatID string, messageID int, text string, options *telebot.SendOptions) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}
	if options.ParseMode == "" {
		options.ParseMode = telebot.ModeHTML
	}

	ref := &telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: id}
	_, err = tba.bot.Edit(ref, text, options)
	return err
}

func (tba *TelebotAdapter) DeleteMessage(chatID string, messageID int) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	return tba.bot.Delete(&telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: id})
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}
