package sender

import (
	"github.com/prilive-com/gramflow/tg"
)

// SendMessageRequest carries the parameters for sendMessage.
type SendMessageRequest struct {
	ChatID              int64  `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID    int    `json:"reply_to_message_id,omitempty"`
}

func (r SendMessageRequest) validate(maxTextLength int) error {
	if r.ChatID == 0 {
		return tg.NewValidationError("chat_id", "must not be zero")
	}
	if r.Text == "" {
		return tg.NewValidationError("text", "must not be empty")
	}
	if maxTextLength > 0 && len([]rune(r.Text)) > maxTextLength {
		return tg.NewValidationError("text", "exceeds maximum length")
	}
	return nil
}

// SendStickerRequest carries the parameters for sendSticker.
type SendStickerRequest struct {
	ChatID              int64  `json:"chat_id"`
	Sticker             string `json:"sticker"` // file_id of a sticker known to Telegram
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

func (r SendStickerRequest) validate() error {
	if r.ChatID == 0 {
		return tg.NewValidationError("chat_id", "must not be zero")
	}
	if r.Sticker == "" {
		return tg.NewValidationError("sticker", "must not be empty")
	}
	return nil
}

// AnswerCallbackQueryRequest carries the parameters for answerCallbackQuery.
type AnswerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
	CacheTime       int    `json:"cache_time,omitempty"`
}

func (r AnswerCallbackQueryRequest) validate() error {
	if r.CallbackQueryID == "" {
		return tg.NewValidationError("callback_query_id", "must not be empty")
	}
	return nil
}
