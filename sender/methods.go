package sender

import (
	"context"
	"strconv"

	"github.com/prilive-com/gramflow/tg"
)

// SendMessage sends a text message and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*tg.Message, error) {
	if err := req.validate(c.config.MaxTextLength); err != nil {
		return nil, err
	}

	var msg tg.Message
	if err := c.callJSON(ctx, "sendMessage", req, &msg, chatKey(req.ChatID)); err != nil {
		return nil, err
	}

	c.logger.Debug("message sent", "chat_id", req.ChatID, "message_id", msg.MessageID)
	return &msg, nil
}

// SendSticker sends a sticker by file_id and returns the sent message.
func (c *Client) SendSticker(ctx context.Context, req SendStickerRequest) (*tg.Message, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var msg tg.Message
	if err := c.callJSON(ctx, "sendSticker", req, &msg, chatKey(req.ChatID)); err != nil {
		return nil, err
	}

	c.logger.Debug("sticker sent", "chat_id", req.ChatID, "message_id", msg.MessageID)
	return &msg, nil
}

// AnswerCallbackQuery acknowledges a callback query so the client stops
// showing its progress indicator. Telegram requires an answer within roughly
// ten seconds of the press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, req AnswerCallbackQueryRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	return c.callJSON(ctx, "answerCallbackQuery", req, nil, "")
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
