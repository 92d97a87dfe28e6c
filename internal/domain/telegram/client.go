package telegram

import "gopkg.in/telebot.v3"

// Client defines the messaging operations used by the questionnaire workflow.
// This helps in decoupling the application logic from the specific bot
// library. Chat ids are the store's textual chat keys; implementations parse
// them at the boundary.
type Client interface {
	// SendMessage delivers text to the chat and returns the new message's id,
	// the reference persisted as the questionnaire's live prompt.
	SendMessage(chatID string, text string, options *telebot.SendOptions) (int, error)
	// EditMessage rewrites an existing message in place, replacing its text and
	// inline keyboard.
	EditMessage(chatID string, messageID int, text string, options *telebot.SendOptions) error
	DeleteMessage(chatID string, messageID int) error
}
