package testutil

import (
	"github.com/prilive-com/gramflow/tg"
)

// Canned updates covering each payload kind. Update IDs are the caller's
// responsibility so ordering assertions stay explicit in the test.

// TextUpdate returns a plain text message update.
func TextUpdate(id int, text string) tg.Update {
	return tg.Update{
		UpdateID: id,
		Message: &tg.Message{
			MessageID: id,
			Text:      text,
			Chat:      &tg.Chat{ID: 42, Type: "private"},
			From:      &tg.User{ID: 7, FirstName: "Test"},
		},
	}
}

// CommandUpdate returns a /command update with the bot_command entity set,
// the way real Telegram clients send it.
func CommandUpdate(id int, text string) tg.Update {
	u := TextUpdate(id, text)
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	u.Message.Entities = []tg.MessageEntity{
		{Type: tg.EntityBotCommand, Offset: 0, Length: end},
	}
	return u
}

// StickerUpdate returns a sticker message update.
func StickerUpdate(id int) tg.Update {
	return tg.Update{
		UpdateID: id,
		Message: &tg.Message{
			MessageID: id,
			Chat:      &tg.Chat{ID: 42, Type: "private"},
			From:      &tg.User{ID: 7, FirstName: "Test"},
			Sticker:   &tg.Sticker{FileID: "sticker-file-id", Emoji: "👍"},
		},
	}
}

// PhotoUpdate returns a photo message update.
func PhotoUpdate(id int) tg.Update {
	return tg.Update{
		UpdateID: id,
		Message: &tg.Message{
			MessageID: id,
			Chat:      &tg.Chat{ID: 42, Type: "private"},
			From:      &tg.User{ID: 7, FirstName: "Test"},
			Photo:     []tg.PhotoSize{{FileID: "photo-file-id", Width: 90, Height: 90}},
		},
	}
}

// CallbackUpdate returns a callback query update.
func CallbackUpdate(id int, data string) tg.Update {
	return tg.Update{
		UpdateID: id,
		CallbackQuery: &tg.CallbackQuery{
			ID:           "cb-1",
			From:         &tg.User{ID: 7, FirstName: "Test"},
			ChatInstance: "ci-1",
			Data:         data,
			Message: &tg.Message{
				MessageID: id,
				Chat:      &tg.Chat{ID: 42, Type: "private"},
			},
		},
	}
}
