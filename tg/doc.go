// Package tg contains the shared Telegram types used across gramflow.
//
// The central type is Update, the immutable record delivered by Telegram
// either through long polling or a webhook push. Updates carry a closed
// payload classification (see Kind) so routing code can match on explicit
// variants instead of inspecting raw fields at call time.
package tg
