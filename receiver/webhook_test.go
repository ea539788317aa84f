package receiver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prilive-com/gramflow/internal/testutil"
	"github.com/prilive-com/gramflow/receiver"
	"github.com/prilive-com/gramflow/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookTestConfig() receiver.Config {
	cfg := receiver.DefaultConfig()
	cfg.WebhookSecret = "test-secret"
	cfg.RateLimitRequests = 1000
	cfg.RateLimitBurst = 1000
	return cfg
}

func postUpdate(t *testing.T, h http.Handler, secret string, u tg.Update) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(u)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ==================== Authentication ====================

func TestWebhook_ValidSecret_Accepts(t *testing.T) {
	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), webhookTestConfig())

	rec := postUpdate(t, h, "test-secret", testutil.TextUpdate(1, "hello"))

	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-sink.done:
	case <-time.After(time.Second):
		t.Fatal("update never reached the sink")
	}
	require.Len(t, sink.asyncDelivered(), 1)
	assert.Equal(t, 1, sink.asyncDelivered()[0].UpdateID)
}

func TestWebhook_WrongSecret_Rejects401(t *testing.T) {
	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), webhookTestConfig())

	rec := postUpdate(t, h, "wrong", testutil.TextUpdate(1, "hello"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sink.asyncDelivered())
}

func TestWebhook_MissingSecret_Rejects401(t *testing.T) {
	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), webhookTestConfig())

	rec := postUpdate(t, h, "", testutil.TextUpdate(1, "hello"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sink.asyncDelivered())
}

func TestWebhook_NoSecretConfigured_SkipsCheck(t *testing.T) {
	cfg := webhookTestConfig()
	cfg.WebhookSecret = ""

	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), cfg)

	rec := postUpdate(t, h, "", testutil.TextUpdate(1, "hello"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ==================== Method and Body Handling ====================

func TestWebhook_GET_Rejects405(t *testing.T) {
	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), webhookTestConfig())

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, sink.asyncDelivered())
}

func TestWebhook_MalformedJSON_Rejects400WithoutDispatch(t *testing.T) {
	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), webhookTestConfig())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "test-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sink.asyncDelivered())
	assert.Empty(t, sink.dispatched())
}

func TestWebhook_OversizedBody_Rejects413(t *testing.T) {
	cfg := webhookTestConfig()
	cfg.MaxBodySize = 64

	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), cfg)

	big := strings.Repeat("x", 1024)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":1,"pad":"`+big+`"}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "test-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, sink.asyncDelivered())
}

// ==================== Rate Limiting ====================

func TestWebhook_RateLimit_Rejects429(t *testing.T) {
	cfg := webhookTestConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitBurst = 2

	sink := newRecordingSink()
	h := receiver.NewWebhookHandler(sink, testLogger(), cfg)

	var rejected int
	for i := 0; i < 10; i++ {
		rec := postUpdate(t, h, "test-secret", testutil.TextUpdate(i+1, "hello"))
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}

	assert.Greater(t, rejected, 0, "burst of 10 against limit 1/s burst 2 should see rejections")
}

// ==================== Asynchronous Delivery ====================

// blockingSink holds each update until released, with Go honoring the
// asynchronous contract by running on its own goroutine.
type blockingSink struct {
	release   chan struct{}
	delivered chan tg.Update
}

func (s *blockingSink) Dispatch(_ context.Context, u tg.Update) {
	<-s.release
	s.delivered <- u
}

func (s *blockingSink) Go(ctx context.Context, u tg.Update) {
	go s.Dispatch(ctx, u)
}

func TestWebhook_AcksBeforeHandlersFinish(t *testing.T) {
	release := make(chan struct{})
	sink := &blockingSink{release: release, delivered: make(chan tg.Update, 1)}
	h := receiver.NewWebhookHandler(sink, testLogger(), webhookTestConfig())

	done := make(chan int, 1)
	go func() {
		rec := postUpdate(t, h, "test-secret", testutil.TextUpdate(7, "slow"))
		done <- rec.Code
	}()

	// The response must come back while the sink is still blocked.
	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(time.Second):
		t.Fatal("response blocked on handler execution")
	}

	close(release)
	select {
	case u := <-sink.delivered:
		assert.Equal(t, 7, u.UpdateID)
	case <-time.After(time.Second):
		t.Fatal("update never delivered")
	}
}
