package tg

import "strings"

// Update represents one incoming update from Telegram.
// Update IDs increase monotonically per bot; the polling client uses them to
// advance its offset and the platform uses them for deduplication.
type Update struct {
	UpdateID          int            `json:"update_id"`
	Message           *Message       `json:"message,omitempty"`
	EditedMessage     *Message       `json:"edited_message,omitempty"`
	ChannelPost       *Message       `json:"channel_post,omitempty"`
	EditedChannelPost *Message       `json:"edited_channel_post,omitempty"`
	CallbackQuery     *CallbackQuery `json:"callback_query,omitempty"`
}

// CallbackQuery represents an incoming callback query from an inline keyboard.
type CallbackQuery struct {
	ID              string   `json:"id"`
	From            *User    `json:"from"`
	Message         *Message `json:"message,omitempty"`
	InlineMessageID string   `json:"inline_message_id,omitempty"`
	ChatInstance    string   `json:"chat_instance"`
	Data            string   `json:"data,omitempty"`
}

// Kind is the closed classification of an update's payload.
// Exactly one kind applies to any update; routing predicates match on it
// instead of inspecting raw fields.
type Kind int

const (
	KindUnknown Kind = iota
	KindCommand
	KindText
	KindSticker
	KindMedia
	KindCallback
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindSticker:
		return "sticker"
	case KindMedia:
		return "media"
	case KindCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Kind classifies the update payload.
func (u *Update) Kind() Kind {
	if u == nil {
		return KindUnknown
	}
	if u.CallbackQuery != nil {
		return KindCallback
	}
	msg := u.Msg()
	switch {
	case msg == nil:
		return KindUnknown
	case msg.Sticker != nil:
		return KindSticker
	case msg.HasMedia():
		return KindMedia
	case isCommand(msg):
		return KindCommand
	case msg.Text != "":
		return KindText
	default:
		return KindUnknown
	}
}

// Msg returns the effective message of the update: the message, edited
// message, channel post, or the message a callback query refers to.
// Returns nil when the update carries no message at all.
func (u *Update) Msg() *Message {
	switch {
	case u == nil:
		return nil
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost
	case u.CallbackQuery != nil:
		return u.CallbackQuery.Message
	default:
		return nil
	}
}

// Chat returns the chat the update belongs to, or nil.
func (u *Update) Chat() *Chat {
	if msg := u.Msg(); msg != nil {
		return msg.Chat
	}
	return nil
}

// Sender returns the user who produced the update, or nil.
func (u *Update) Sender() *User {
	if u == nil {
		return nil
	}
	if u.CallbackQuery != nil {
		return u.CallbackQuery.From
	}
	if msg := u.Msg(); msg != nil {
		return msg.From
	}
	return nil
}

// Text returns the text of the effective message, or the callback data for
// callback updates.
func (u *Update) Text() string {
	if u == nil {
		return ""
	}
	if u.CallbackQuery != nil {
		return u.CallbackQuery.Data
	}
	if msg := u.Msg(); msg != nil {
		return msg.Text
	}
	return ""
}

// Command returns the command name of a KindCommand update, lowercased and
// without the leading slash or @botname suffix. Empty for other kinds.
func (u *Update) Command() string {
	msg := u.Msg()
	if msg == nil || !isCommand(msg) {
		return ""
	}
	cmd := msg.Text[1:]
	if i := strings.IndexAny(cmd, " \t\n"); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

// CommandArgs returns the text following the command, trimmed.
// Empty when the update is not a command or has no arguments.
func (u *Update) CommandArgs() string {
	msg := u.Msg()
	if msg == nil || !isCommand(msg) {
		return ""
	}
	if i := strings.IndexAny(msg.Text, " \t\n"); i >= 0 {
		return strings.TrimSpace(msg.Text[i+1:])
	}
	return ""
}

// isCommand reports whether the message text is a bot command.
// Telegram marks commands with a bot_command entity at offset 0; the text
// prefix check covers clients that omit entities.
func isCommand(msg *Message) bool {
	if msg == nil || !strings.HasPrefix(msg.Text, "/") || len(msg.Text) < 2 {
		return false
	}
	if len(msg.Entities) == 0 {
		return true
	}
	for _, e := range msg.Entities {
		if e.Type == EntityBotCommand && e.Offset == 0 {
			return true
		}
	}
	return false
}
