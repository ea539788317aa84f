package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// FakeAPI is a stub Telegram Bot API server. Handlers are registered per
// method name ("getUpdates", "sendMessage", ...); methods without a handler
// answer {"ok":true,"result":true}.
type FakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]http.HandlerFunc
	server   *httptest.Server
}

// NewFakeAPI starts a stub server. Callers must Close it.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		calls:    make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	method := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		method = path[i+1:]
	}

	f.mu.Lock()
	f.calls[method]++
	h := f.handlers[method]
	f.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}
	RespondOK(w, true)
}

// Handle registers a handler for one API method.
func (f *FakeAPI) Handle(method string, h http.HandlerFunc) {
	f.mu.Lock()
	f.handlers[method] = h
	f.mu.Unlock()
}

// CallCount returns how many times a method was invoked.
func (f *FakeAPI) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// BaseURL returns the server in the "https://host/bot" shape the clients
// append a token to.
func (f *FakeAPI) BaseURL() string {
	return f.server.URL + "/bot"
}

// Close shuts the stub server down.
func (f *FakeAPI) Close() {
	f.server.Close()
}

// RespondOK writes a successful Bot API envelope around result.
func RespondOK(w http.ResponseWriter, result any) {
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

// RespondError writes a Bot API error envelope.
func RespondError(w http.ResponseWriter, code int, description string) {
	json.NewEncoder(w).Encode(map[string]any{
		"ok": false, "error_code": code, "description": description,
	})
}

// RespondRetryAfter writes a 429 envelope carrying a retry_after hint.
func RespondRetryAfter(w http.ResponseWriter, seconds int) {
	json.NewEncoder(w).Encode(map[string]any{
		"ok":          false,
		"error_code":  429,
		"description": "Too Many Requests: retry after " + strconv.Itoa(seconds),
		"parameters":  map[string]any{"retry_after": seconds},
	})
}
