// Package testutil holds test doubles shared across package tests: a fake
// Telegram Bot API server and canned update fixtures.
//
// Test-only; nothing in this package is compiled into the library.
package testutil
