package dispatch

import (
	"strings"

	"github.com/prilive-com/gramflow/tg"
)

// Kind matches updates of exactly the given payload kind.
func Kind(k tg.Kind) Predicate {
	return func(u tg.Update) bool {
		return u.Kind() == k
	}
}

// Command matches the /name command, ignoring case and any @botname suffix.
func Command(name string) Predicate {
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	return func(u tg.Update) bool {
		return u.Kind() == tg.KindCommand && u.Command() == name
	}
}

// TextContains matches plain text messages containing substr,
// case-insensitive.
func TextContains(substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(u tg.Update) bool {
		if u.Kind() != tg.KindText {
			return false
		}
		return strings.Contains(strings.ToLower(u.Text()), substr)
	}
}

// TextEquals matches plain text messages equal to text, case-insensitive.
func TextEquals(text string) Predicate {
	return func(u tg.Update) bool {
		return u.Kind() == tg.KindText && strings.EqualFold(u.Text(), text)
	}
}

// CallbackPrefix matches callback queries whose data starts with prefix.
// An empty prefix matches every callback query.
func CallbackPrefix(prefix string) Predicate {
	return func(u tg.Update) bool {
		return u.Kind() == tg.KindCallback && strings.HasPrefix(u.Text(), prefix)
	}
}

// Any matches when at least one of the given predicates matches.
func Any(preds ...Predicate) Predicate {
	return func(u tg.Update) bool {
		for _, p := range preds {
			if p(u) {
				return true
			}
		}
		return false
	}
}

// All matches when every given predicate matches.
func All(preds ...Predicate) Predicate {
	return func(u tg.Update) bool {
		for _, p := range preds {
			if !p(u) {
				return false
			}
		}
		return true
	}
}
